package factory

import (
	"context"
	"errors"
	"testing"

	"Go2ResSpectra/internal/config"
	"Go2ResSpectra/internal/model"
	"Go2ResSpectra/internal/resources"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubWriter struct{ name string }

func (w *stubWriter) Write(context.Context, resources.Result) error { return nil }
func (w *stubWriter) Name() string                                  { return w.name }

func init() {
	RegisterWriter("stub", func(def config.WriterDef) (model.Writer, error) {
		return &stubWriter{name: def.Type}, nil
	})
	RegisterWriter("broken", func(config.WriterDef) (model.Writer, error) {
		return nil, errors.New("cannot connect")
	})
}

func TestCreateWriters(t *testing.T) {
	cfg := &config.Config{Writers: []config.WriterDef{
		{Type: "stub", Enabled: true},
		{Type: "stub", Enabled: false},
		{Type: "broken", Enabled: true},
	}}

	writers, err := CreateWriters(cfg)
	require.NoError(t, err)
	require.Len(t, writers, 1)
	assert.Equal(t, "stub", writers[0].Name())
}

func TestCreateWritersUnknownType(t *testing.T) {
	_, err := CreateWriters(&config.Config{Writers: []config.WriterDef{{Type: "carrier-pigeon", Enabled: true}}})
	assert.Error(t, err)
	assert.False(t, Registered("carrier-pigeon"))
}

func TestRegisterWriterTwicePanics(t *testing.T) {
	assert.Panics(t, func() {
		RegisterWriter("stub", func(config.WriterDef) (model.Writer, error) { return nil, nil })
	})
}
