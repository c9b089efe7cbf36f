package testutil

import (
	"trendpulse/internal/logging"
)

// NullLogger returns a logger that discards most output
func NullLogger() *logging.Logger {
	return logging.NewDiscard()
}
