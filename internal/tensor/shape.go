package tensor

import (
	"fmt"
	"slices"
)

// Shape lists blob dimensions, outermost first. PyTorch parameter shapes
// map onto it unchanged: (out, in, kH, kW) for convolution weights, (C) for
// per-channel vectors.
type Shape []int

// NumElements returns the product of the dimensions; 1 for a 0-D shape.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate rejects shapes with a non-positive dimension.
func (s Shape) Validate() error {
	for axis, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("dimension %d of %v is %d, must be positive", axis, []int(s), dim)
		}
	}
	return nil
}

// Equal reports whether both shapes have the same dimensions.
func (s Shape) Equal(other Shape) bool {
	return slices.Equal(s, other)
}

// Clone returns a copy that does not share storage with s.
func (s Shape) Clone() Shape {
	if s == nil {
		return Shape{}
	}
	return slices.Clone(s)
}

// Strides returns row-major element strides: the last axis is contiguous.
func (s Shape) Strides() []int {
	strides := make([]int, len(s))
	step := 1
	for axis := len(s) - 1; axis >= 0; axis-- {
		strides[axis] = step
		step *= s[axis]
	}
	return strides
}
