package engine

import (
	"errors"
	"fmt"
	"net/http"

	"promptgate/pkg/metric"
	"promptgate/pkg/optimize"
	"promptgate/pkg/signature"
)

// Error kinds. Collaborator sentinels are re-exported so callers need only
// this package to classify failures.
var (
	ErrConfiguration        = errors.New("configuration_error")
	ErrSignatureParse       = signature.ErrParse
	ErrUnconfiguredModel    = errors.New("unconfigured_model")
	ErrUnknownSignature     = errors.New("unknown_signature")
	ErrUnknownModule        = errors.New("unknown_module")
	ErrUnknownMetric        = metric.ErrUnknownMetric
	ErrUnsupportedOptimizer = optimize.ErrUnsupported
	ErrPrediction           = errors.New("prediction_error")
	ErrOptimization         = errors.New("optimization_error")
	ErrInvalidRequest       = errors.New("invalid_request")
)

// Error is a classified failure. errors.Is matches both Kind and the
// wrapped cause.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

func invalidRequest(format string, args ...any) *Error {
	return newError(ErrInvalidRequest, nil, format, args...)
}

// kinds is ordered: the first match classifies the error.
var kinds = []struct {
	err    error
	name   string
	status int
}{
	{ErrUnconfiguredModel, "unconfigured_model", http.StatusInternalServerError},
	{ErrUnknownSignature, "unknown_signature", http.StatusNotFound},
	{ErrUnknownModule, "unknown_module", http.StatusNotFound},
	{ErrUnknownMetric, "unknown_metric", http.StatusBadRequest},
	{ErrUnsupportedOptimizer, "unsupported_optimizer", http.StatusBadRequest},
	{ErrSignatureParse, "signature_parse_error", http.StatusBadRequest},
	{ErrConfiguration, "configuration_error", http.StatusInternalServerError},
	{ErrPrediction, "prediction_error", http.StatusInternalServerError},
	{ErrOptimization, "optimization_error", http.StatusInternalServerError},
	{ErrInvalidRequest, "invalid_request", http.StatusBadRequest},
}

// Classify returns the wire type name and HTTP status of err. An invalid
// request anywhere in the chain downgrades the status to 400.
func Classify(err error) (string, int) {
	name, status := "internal_error", http.StatusInternalServerError
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			name, status = k.name, k.status
			break
		}
	}
	if errors.Is(err, ErrInvalidRequest) {
		status = http.StatusBadRequest
	}
	return name, status
}

// invalidRequestError marks a collaborator error as the caller's fault.
type invalidRequestError struct {
	err error
}

func (e invalidRequestError) Error() string {
	return e.err.Error()
}

func (e invalidRequestError) Unwrap() []error {
	return []error{ErrInvalidRequest, e.err}
}
