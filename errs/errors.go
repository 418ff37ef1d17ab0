// Package errs holds the error taxonomy shared by the rendering pipeline.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for reporting.
type Kind string

const (
	KindStructural    Kind = "structural"
	KindConfiguration Kind = "configuration"
	KindData          Kind = "data_unavailable"
	KindRender        Kind = "render_backend"
	KindIO            Kind = "io"
	KindUnknown       Kind = "unknown"
)

// StructuralError reports a template that fails schema validation.
// Generation never starts when one is returned.
type StructuralError struct {
	Path   string // e.g. slides[2].components[0]
	Reason string
}

func (e *StructuralError) Error() string {
	if e.Path == "" {
		return "invalid template: " + e.Reason
	}
	return fmt.Sprintf("invalid template at %s: %s", e.Path, e.Reason)
}

// ConfigurationError reports an unknown element type or a missing/invalid
// element field.
type ConfigurationError struct {
	Type       string
	Field      string
	Index      int // position in a config list, -1 when not applicable
	Reason     string
	Suggestion string
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	if e.Index >= 0 {
		fmt.Fprintf(&b, "component %d: ", e.Index)
	}
	if e.Type == "" {
		b.WriteString("element")
	} else {
		fmt.Fprintf(&b, "%q element", e.Type)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field %q", e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Suggestion != "" {
		fmt.Fprintf(&b, " (did you mean %q?)", e.Suggestion)
	}
	return b.String()
}

// Configf builds a ConfigurationError without a list index.
func Configf(elementType, field, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{
		Type:   elementType,
		Field:  field,
		Index:  -1,
		Reason: fmt.Sprintf(format, args...),
	}
}

// DataUnavailableError reports named columns or a data source that cannot be
// found. Elements degrade to a placeholder.
type DataUnavailableError struct {
	Source     string
	Columns    []string
	Reason     string
	Suggestion string
}

func (e *DataUnavailableError) Error() string {
	msg := "data unavailable"
	if e.Source != "" {
		msg += " in " + e.Source
	}
	if len(e.Columns) > 0 {
		msg += fmt.Sprintf(": columns %s", strings.Join(e.Columns, ", "))
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

// RenderBackendError reports a failing draw or plot call.
type RenderBackendError struct {
	Backend string
	Err     error
}

func (e *RenderBackendError) Error() string {
	return fmt.Sprintf("%s backend: %v", e.Backend, e.Err)
}

func (e *RenderBackendError) Unwrap() error {
	return e.Err
}

// IOError reports output path or directory problems. It always surfaces to
// the caller.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// KindOf walks the wrap chain and reports the first recognised kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var (
		se *StructuralError
		ce *ConfigurationError
		de *DataUnavailableError
		re *RenderBackendError
		ie *IOError
	)
	switch {
	case errors.As(err, &se):
		return KindStructural
	case errors.As(err, &ce):
		return KindConfiguration
	case errors.As(err, &de):
		return KindData
	case errors.As(err, &re):
		return KindRender
	case errors.As(err, &ie):
		return KindIO
	}
	return KindUnknown
}

// WrapOperation wraps an error with a consistent "failed to {operation}: %w" format.
func WrapOperation(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("failed to %s: %w", operation, err)
}

// WrapOperationf is WrapOperation with a formatted operation.
func WrapOperationf(format string, err error, args ...interface{}) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("failed to %s: %w", msg, err)
}
