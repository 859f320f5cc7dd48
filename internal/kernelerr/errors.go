// Package kernelerr defines the error surface the simulation kernel returns
// to callers: configuration problems detected before any trial runs,
// cancellation, and missing reference data. Trial-level outcomes (portfolio
// depletion, target miss) are never represented as errors here — they are
// recorded on YearRecord/SimulationReport instead.
package kernelerr

import "fmt"

// ConfigError reports a single invalid field in a Config, with a path so
// callers can point a user at the offending input (e.g. "strategy_configs[0].fixed_swr.withdrawal_rate").
type ConfigError struct {
	Path   string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// NewConfigError builds a ConfigError, formatting Reason like fmt.Errorf.
func NewConfigError(path, format string, args ...any) *ConfigError {
	return &ConfigError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// ReferenceDataMissingError reports that a requested country or region has
// no corresponding reference-data bundle loaded.
type ReferenceDataMissingError struct {
	Kind string // "country" or "region"
	Key  string
}

func (e *ReferenceDataMissingError) Error() string {
	return fmt.Sprintf("reference data missing: %s %q", e.Kind, e.Key)
}

// ErrCancelled is returned when a run is cancelled via its context between
// trials. Partial results are always discarded when this is returned.
var ErrCancelled = fmt.Errorf("simulation cancelled")
