package api

import (
	"context"
	"encoding/json"
	"net/http"

	"Go2ResSpectra/internal/engine/manager"
	"Go2ResSpectra/internal/resources"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Controller is the part of the manager the control API drives.
type Controller interface {
	Begin()
	End()
	Reset()
	Result() resources.Result
	Collect(ctx context.Context) (resources.Result, error)
	Status() manager.Status
}

// APIHandler holds the dependencies for API handlers.
type APIHandler struct {
	ctrl     Controller
	gatherer prometheus.Gatherer
}

// NewRouter builds the control API routes. /metrics is only served when gatherer is non-nil.
func NewRouter(ctrl Controller, gatherer prometheus.Gatherer) *mux.Router {
	h := &APIHandler{ctrl: ctrl, gatherer: gatherer}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/start", h.startHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/stop", h.stopHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/reset", h.resetHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/collect", h.collectHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/result", h.resultHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/status", h.statusHandler).Methods(http.MethodGet)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r
}

func (h *APIHandler) startHandler(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Begin()
	writeJSON(w, http.StatusOK, h.ctrl.Status())
}

func (h *APIHandler) stopHandler(w http.ResponseWriter, r *http.Request) {
	h.ctrl.End()
	writeJSON(w, http.StatusOK, h.ctrl.Status())
}

func (h *APIHandler) resetHandler(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Reset()
	writeJSON(w, http.StatusOK, h.ctrl.Status())
}

func (h *APIHandler) resultHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Result())
}

// collectHandler writes the result through every writer. The result is returned even when
// a writer failed, together with the error text.
func (h *APIHandler) collectHandler(w http.ResponseWriter, r *http.Request) {
	result, err := h.ctrl.Collect(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, collectResponse{Result: result, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, collectResponse{Result: result})
}

func (h *APIHandler) statusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Status())
}

type collectResponse struct {
	Result resources.Result `json:"result"`
	Error  string           `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Errorf("error encoding response to json: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(b); err != nil {
		log.Errorf("error writing response: %v", err)
	}
}
