package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrTranscodeFailed   = errors.New("transcode failed")
	ErrEmptySelection    = errors.New("empty selection")
	ErrExternalTool      = errors.New("external tool error")
	ErrValidation        = errors.New("validation error")
	ErrConfiguration     = errors.New("configuration error")
	ErrTimeout           = errors.New("timeout")
)

// Kind is the stable, user-facing classification of a failure.
type Kind string

const (
	KindNone              Kind = ""
	KindUnsupportedFormat Kind = "unsupported_format"
	KindTranscodeFailed   Kind = "transcode_failed"
	KindEmptySelection    Kind = "empty_selection"
	KindExternalTool      Kind = "external_tool"
	KindValidation        Kind = "validation"
	KindConfiguration     Kind = "configuration"
	KindTimeout           Kind = "timeout"
	KindUnknown           Kind = "unknown"
)

// Error carries the stage context for a classified failure. It unwraps to both
// the marker and the underlying cause so errors.Is works against either.
type Error struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	detail := buildDetail(e.Stage, e.Operation, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%v: %s: %v", e.Marker, detail, e.Cause)
	}
	return fmt.Sprintf("%v: %s", e.Marker, detail)
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Marker, e.Cause}
	}
	return []error{e.Marker}
}

// Wrap builds an error that includes stage context while tagging it with the
// provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrExternalTool
	}
	return &Error{
		Marker:    marker,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Cause:     err,
	}
}

// KindOf maps an error onto its classification. Timeouts raised by a context
// deadline are reported as KindTimeout even when unwrapped.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUnsupportedFormat):
		return KindUnsupportedFormat
	case errors.Is(err, ErrTranscodeFailed):
		return KindTranscodeFailed
	case errors.Is(err, ErrEmptySelection):
		return KindEmptySelection
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrExternalTool):
		return KindExternalTool
	default:
		return KindUnknown
	}
}

// ErrorDetails is the flattened view of a classified error used for logging
// and status payloads.
type ErrorDetails struct {
	Kind      Kind
	Stage     string
	Operation string
	Message   string
	Hint      string
	Cause     error
}

// Details extracts the classification and context recorded by Wrap. Errors
// that were not produced by Wrap still report their kind and message.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: KindOf(err), Message: err.Error()}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		details.Stage = svcErr.Stage
		details.Operation = svcErr.Operation
		if svcErr.Message != "" {
			details.Message = svcErr.Message
		}
		details.Cause = svcErr.Cause
	}
	if details.Kind == KindTranscodeFailed && details.Cause != nil {
		details.Message = fmt.Sprintf("%s: %v", details.Message, details.Cause)
	}
	details.Hint = hintFor(details.Kind)
	return details
}

func hintFor(kind Kind) string {
	switch kind {
	case KindUnsupportedFormat:
		return "Please upload a HEIC/HEIF image"
	case KindTranscodeFailed:
		return "The image could not be decoded; try another file or the other conversion backend"
	case KindEmptySelection:
		return "Select a non-empty crop region and apply again"
	case KindTimeout:
		return "Increase conversion.timeout_seconds or try a smaller image"
	case KindConfiguration:
		return "Check the heicrop configuration file"
	case KindExternalTool:
		return "Run heicrop deps to verify external tools"
	default:
		return ""
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
