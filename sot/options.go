package sot

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DefaultMatchThreshold is minimum template score (exclusive) to accept a re-detection
const DefaultMatchThreshold = 0.7

// Options configures TrackingStateMachine
type Options struct {
	// Template score must be strictly greater than this to accept a re-detection. Must be in (0, 1]
	MatchThreshold float64
	// Concurrent row bands for re-detection search. Non-positive means runtime.NumCPU()
	Workers int
	// Logger for state transitions. Nil disables logging
	Logger *zerolog.Logger
}

// DefaultOptions returns options with default threshold and no logging
func DefaultOptions() Options {
	return Options{
		MatchThreshold: DefaultMatchThreshold,
	}
}

// Validate checks option ranges
func (opts Options) Validate() error {
	if !(opts.MatchThreshold > 0 && opts.MatchThreshold <= 1) {
		return errors.Errorf("match threshold must lie in (0, 1], got %v", opts.MatchThreshold)
	}
	return nil
}

func (opts Options) logger() zerolog.Logger {
	if opts.Logger == nil {
		return zerolog.Nop()
	}
	return *opts.Logger
}
