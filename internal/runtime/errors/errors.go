package errors

import sterrors "errors"

var (
	ErrConfigRequired     = sterrors.New("sidewire: config is required")
	ErrBackendRequired    = sterrors.New("sidewire: delivery backend is required")
	ErrSourceRequired     = sterrors.New("sidewire: source identifier is required")
	ErrLevelRequired      = sterrors.New("sidewire: event level is required")
	ErrMessageRequired    = sterrors.New("sidewire: event message is required")
	ErrMetricNameRequired = sterrors.New("sidewire: metric name is required")
	ErrJobIDRequired      = sterrors.New("sidewire: job id is required")
	ErrSpanNameRequired   = sterrors.New("sidewire: span name is required")
	ErrSpanIDRequired     = sterrors.New("sidewire: span id is required")
	ErrIdentifierTooLong  = sterrors.New("sidewire: correlation identifier exceeds maximum length")
)
