package writer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"Go2ResSpectra/internal/config"
	"Go2ResSpectra/internal/factory"
	"Go2ResSpectra/internal/model"
	"Go2ResSpectra/internal/resources"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

func init() {
	factory.RegisterWriter("yaml", func(def config.WriterDef) (model.Writer, error) {
		return NewYAMLWriter(def.YAML.RootPath), nil
	})
}

// SummaryData holds the metadata written next to a result, internal to the writer.
type SummaryData struct {
	ActivationTime float64  `json:"activation_time"`
	Nodes          int      `json:"nodes"`
	TotalSamples   int      `json:"total_samples"`
	Labels         []string `json:"labels"`
	Timestamp      string   `json:"timestamp"`
}

// YAMLWriter writes each result to <root>/<activation time>/resources.yaml.
// It implements the model.Writer interface.
type YAMLWriter struct {
	rootPath string
	now      func() time.Time
}

// NewYAMLWriter creates a new writer rooted at rootPath.
func NewYAMLWriter(rootPath string) *YAMLWriter {
	return &YAMLWriter{rootPath: rootPath, now: time.Now}
}

// Name returns the writer type.
func (w *YAMLWriter) Name() string { return "yaml" }

// Dir returns the directory a result is written to.
func (w *YAMLWriter) Dir(result resources.Result) string {
	return filepath.Join(w.rootPath, activationTime(result, w.now).Format(dirTimeLayout))
}

// Write serializes the result, keyed by its labels, plus a summary.json.
func (w *YAMLWriter) Write(ctx context.Context, result resources.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// 1. Create the directory for this activation
	dir := w.Dir(result)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create result directory: %w", err)
	}

	// 2. Write label[i] -> payload[i]
	doc := make(map[string]resources.Payload, len(result.Labels))
	for i, label := range result.Labels {
		doc[label] = result.Payloads[i]
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode result to yaml: %w", err)
	}
	resultPath := filepath.Join(dir, "resources.yaml")
	if err := os.WriteFile(resultPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write result file '%s': %w", resultPath, err)
	}

	// 3. Write the summary
	summary := SummaryData{
		ActivationTime: result.Timestamp,
		Nodes:          len(result.Raw()),
		TotalSamples:   result.SampleCount(),
		Labels:         result.Labels[:],
		Timestamp:      w.now().UTC().Format(time.RFC3339),
	}
	summaryFile, err := os.Create(filepath.Join(dir, "summary.json"))
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer summaryFile.Close()

	jsonEncoder := json.NewEncoder(summaryFile)
	jsonEncoder.SetIndent("", "  ")
	if err := jsonEncoder.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}

	log.Infof("Wrote resource result for %d nodes to %s", summary.Nodes, dir)
	return nil
}
