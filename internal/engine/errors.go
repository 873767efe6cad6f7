package engine

import (
	"errors"
	"fmt"
)

// ConfigurationError aborts a single (date, strategy) unit. It is never
// recovered by substituting a default parameter.
type ConfigurationError struct {
	Instrument string
	Anchor     string
	Reason     string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for %s@%s: %s", e.Instrument, e.Anchor, e.Reason)
}

// IsConfigurationError reports whether err carries a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

var (
	// ErrRiskTooSmall is returned when the stop distance rounds to zero ticks.
	ErrRiskTooSmall = errors.New("risk rounds to zero ticks")
	// ErrFillThroughStop is returned when the fill already sits at or beyond the stop.
	ErrFillThroughStop = errors.New("fill at or beyond stop")
	// ErrInvalidBars is returned for unordered, duplicated or non-finite bars.
	ErrInvalidBars = errors.New("invalid bar series")
)

// No-trade reasons recorded on NO_TRADE outcomes.
const (
	ReasonNoRange         = "no_range"
	ReasonSizeFilter      = "size_filter"
	ReasonNoConfirmation  = "no_confirmation"
	ReasonNoFillBar       = "no_fill_bar"
	ReasonFillThroughStop = "fill_through_stop"
	ReasonRiskTooSmall    = "risk_too_small"
)
