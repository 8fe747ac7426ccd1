package engine

import "errors"

// Configuration errors. They are never defaulted into a calculation; the
// CLI maps them to exit code 2.
var (
	ErrFlowchartNotFound     = errors.New("no active flowchart for client")
	ErrScopeConfigNotFound   = errors.New("scope configuration not found")
	ErrEmissionFactorMissing = errors.New("emission factor not configured")
)

// Request errors.
var (
	ErrActivityNotFound = errors.New("activity record not found")
	ErrInvalidInputType = errors.New("invalid input type")
	ErrClientMismatch   = errors.New("activity record belongs to another client")
)

// IsConfigurationError reports whether err is one of the configuration
// errors.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrFlowchartNotFound) ||
		errors.Is(err, ErrScopeConfigNotFound) ||
		errors.Is(err, ErrEmissionFactorMissing)
}
