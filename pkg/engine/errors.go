package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownExtension matches every *UnknownExtensionError.
	ErrUnknownExtension = errors.New("engine: unknown extension")
	// ErrMisconfiguredExtension matches every *MisconfiguredExtensionError.
	ErrMisconfiguredExtension = errors.New("engine: misconfigured extension")
)

// UnknownExtensionError reports that no definition can handle a file.
type UnknownExtensionError struct {
	Extension string
	InputPath string
	Reason    string
}

func (e *UnknownExtensionError) Error() string {
	msg := "engine: unknown extension"
	if e.Extension != "" {
		msg += fmt.Sprintf(" %q", e.Extension)
	}
	if e.InputPath != "" {
		msg += fmt.Sprintf(" for %s", e.InputPath)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is matches ErrUnknownExtension.
func (e *UnknownExtensionError) Is(target error) bool {
	return target == ErrUnknownExtension
}

// MisconfiguredExtensionError reports a definition that asks for instance
// data without a way to obtain the instance.
type MisconfiguredExtensionError struct {
	Extension string
	Reason    string
}

func (e *MisconfiguredExtensionError) Error() string {
	return fmt.Sprintf("engine: extension %q is misconfigured: %s", e.Extension, e.Reason)
}

// Is matches ErrMisconfiguredExtension.
func (e *MisconfiguredExtensionError) Is(target error) bool {
	return target == ErrMisconfiguredExtension
}

// CompileError wraps a failure raised by a compile function.
type CompileError struct {
	Extension string
	InputPath string
	Err       error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("engine: compile %s (%s): %v", e.InputPath, e.Extension, e.Err)
}

// Unwrap returns the compile function's error.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// InvalidDataError reports an instance property that should hold a data
// object but does not.
type InvalidDataError struct {
	InputPath string
	Property  string
	Got       any
}

func (e *InvalidDataError) Error() string {
	return fmt.Sprintf("engine: property %q of %s must be an object, got %T", e.Property, e.InputPath, e.Got)
}
