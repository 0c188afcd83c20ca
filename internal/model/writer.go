package model

import (
	"context"

	"Go2ResSpectra/internal/resources"
)

// Writer defines a generic interface for handing an aggregation result to a persistent store.
type Writer interface {
	// Write persists one result. Labels[i] pairs with Payloads[i].
	Write(ctx context.Context, result resources.Result) error

	// Name identifies the writer in logs and metrics.
	Name() string
}
