// Package writer holds the results writers. Each one registers itself with the factory.
package writer

import (
	"time"

	"Go2ResSpectra/internal/resources"
)

const dirTimeLayout = "2006-01-02_15-04-05"

// activationTime returns the activation time of a result. Results from an aggregator that was
// never started map to now.
func activationTime(result resources.Result, now func() time.Time) time.Time {
	if !result.ActivatedAt.IsZero() {
		return result.ActivatedAt.Local()
	}
	if result.Timestamp == 0 {
		return now()
	}
	sec := int64(result.Timestamp)
	nsec := int64((result.Timestamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
