package convert

import (
	"errors"
	"fmt"
	"strings"
)

// Conversion errors.
var (
	ErrUnsupportedOperator = errors.New("unsupported operator")
	ErrUnsupportedShape    = errors.New("unsupported shape")
	ErrMissingWeightLink   = errors.New("missing weight link")
	ErrUnsupportedConfig   = errors.New("unsupported configuration")
	ErrDescriptorMismatch  = errors.New("descriptor type mismatch")
)

// UnsupportedOperatorError reports a type name with no registered converter.
type UnsupportedOperatorError struct {
	Type  string   // Requested type name
	Known []string // Registered type names, sorted
}

// Error implements the error interface.
func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("unknown layer type: %s, known types: %s", e.Type, strings.Join(e.Known, ", "))
}

// Unwrap returns ErrUnsupportedOperator.
func (e *UnsupportedOperatorError) Unwrap() error {
	return ErrUnsupportedOperator
}

// ShapeError describes a shape ncnn cannot express for an operator.
type ShapeError struct {
	Op   string // Type name being converted
	What string // Offending property, e.g. "kernel must be square"
	Got  []int  // Observed values
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %s, got %v", e.Op, e.What, e.Got)
}

// Unwrap returns ErrUnsupportedShape.
func (e *ShapeError) Unwrap() error {
	return ErrUnsupportedShape
}

func shapeErr(op, what string, got ...int) error {
	return &ShapeError{Op: op, What: what, Got: got}
}

// requireSquare fails unless p holds two equal values.
func requireSquare(op, what string, p Pair) error {
	if p[0] != p[1] {
		return shapeErr(op, what+" must be equal in both spatial dimensions", p[0], p[1])
	}
	return nil
}

func errConfig(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrUnsupportedConfig)...)
}

func errMissing(what string) error {
	return fmt.Errorf("%s: %w", what, ErrMissingWeightLink)
}

func withOp(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
