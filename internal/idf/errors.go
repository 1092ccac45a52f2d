package idf

import (
	"errors"
	"fmt"
)

// ErrNoIDD is returned when a dependent attribute needs the format
// descriptor but no resolver is attached or no IDD exists for the model's
// target version.
var ErrNoIDD = errors.New("format descriptor (IDD) not set")

// ErrNoReportSource is returned when a report attribute is read on a model
// with no report source attached.
var ErrNoReportSource = errors.New("no report source attached to model")

// DependentFieldError reports a write attempted on a derived attribute.
// Dependent attributes are only ever assigned by re-derivation from the
// independent attributes they depend on.
type DependentFieldError struct {
	Field string
}

func (e *DependentFieldError) Error() string {
	return fmt.Sprintf("cannot set %q: derived attributes are read-only", e.Field)
}

// UnknownFieldError reports a Set call naming no known attribute.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown model attribute %q", e.Field)
}
