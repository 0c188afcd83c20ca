package factory

import (
	"fmt"

	"Go2ResSpectra/internal/config"
	"Go2ResSpectra/internal/model"

	log "github.com/sirupsen/logrus"
)

// WriterFactory defines a function that creates a results writer from its definition.
type WriterFactory func(def config.WriterDef) (model.Writer, error)

// registry holds the mapping of writer types to their factory functions.
var registry = make(map[string]WriterFactory)

// RegisterWriter registers a new writer type with its factory function.
func RegisterWriter(name string, factory WriterFactory) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("writer type '%s' already registered", name))
	}
	registry[name] = factory
}

// Registered reports whether a writer type has been registered.
func Registered(name string) bool {
	_, ok := registry[name]
	return ok
}

// CreateWriters builds every enabled writer in cfg. Writers that fail to connect are skipped
// with a warning; an unknown type is an error.
func CreateWriters(cfg *config.Config) ([]model.Writer, error) {
	var writers []model.Writer
	for _, def := range cfg.Writers {
		if !def.Enabled {
			continue
		}
		factory, ok := registry[def.Type]
		if !ok {
			return nil, fmt.Errorf("unknown writer type: '%s'", def.Type)
		}

		log.Infof("Creating writer of type: '%s'", def.Type)
		writer, err := factory(def)
		if err != nil {
			log.Warnf("Failed to create writer type '%s': %v, skipping.", def.Type, err)
			continue
		}
		writers = append(writers, writer)
	}
	return writers, nil
}
