package errs

import "fmt"

// ComponentError attaches the pipeline component and operation to an error.
type ComponentError struct {
	Component string
	Operation string
	Err       error
}

// Error returns "[Component.Operation] error message".
func (e *ComponentError) Error() string {
	return fmt.Sprintf("[%s.%s] %v", e.Component, e.Operation, e.Err)
}

// Unwrap keeps errors.Is/errors.As working through the wrapper.
func (e *ComponentError) Unwrap() error {
	return e.Err
}

// Wrap returns nil for a nil err.
func Wrap(component, operation string, err error) error {
	if err == nil {
		return nil
	}
	return &ComponentError{Component: component, Operation: operation, Err: err}
}
