// Package tensor holds the dense float32 blobs that carry layer weights
// between the source graph and the ncnn weight file.
package tensor

import "fmt"

// Blob is an immutable row-major float32 array with a shape.
type Blob struct {
	shape Shape
	data  []float32
}

// New creates a blob over a copy of data. len(data) must match the shape.
func New(shape Shape, data []float32) (*Blob, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if n := shape.NumElements(); n != len(data) {
		return nil, fmt.Errorf("shape %v needs %d elements, got %d", shape, n, len(data))
	}
	buf := make([]float32, len(data))
	copy(buf, data)
	return &Blob{shape: shape.Clone(), data: buf}, nil
}

// MustNew is like New but panics on error. Intended for literals in tests
// and for shapes computed by the converters themselves.
func MustNew(shape Shape, data []float32) *Blob {
	b, err := New(shape, data)
	if err != nil {
		panic(err)
	}
	return b
}

// Full returns a blob with every element set to v.
func Full(shape Shape, v float32) *Blob {
	data := make([]float32, shape.NumElements())
	for i := range data {
		data[i] = v
	}
	return &Blob{shape: shape.Clone(), data: data}
}

// Zeros returns a zero-filled blob.
func Zeros(shape Shape) *Blob {
	return &Blob{shape: shape.Clone(), data: make([]float32, shape.NumElements())}
}

// Ones returns a blob filled with 1.
func Ones(shape Shape) *Blob {
	return Full(shape, 1)
}

// Scalar0 returns the single-element zero blob ncnn expects in front of
// convolution and inner-product weights.
func Scalar0() *Blob {
	return Zeros(Shape{1})
}

// Shape returns the blob's shape.
func (b *Blob) Shape() Shape {
	return b.shape
}

// Len returns the number of elements.
func (b *Blob) Len() int {
	return len(b.data)
}

// Data returns the underlying elements. Callers must not modify them.
func (b *Blob) Data() []float32 {
	return b.data
}

// At returns the element at the given multi-dimensional index.
func (b *Blob) At(idx ...int) float32 {
	if len(idx) != len(b.shape) {
		panic(fmt.Sprintf("At: got %d indices for %dD blob", len(idx), len(b.shape)))
	}
	strides := b.shape.Strides()
	flat := 0
	for i, v := range idx {
		if v < 0 || v >= b.shape[i] {
			panic(fmt.Sprintf("At: index %d out of range for axis %d (size %d)", v, i, b.shape[i]))
		}
		flat += v * strides[i]
	}
	return b.data[flat]
}

// AddScalar returns a new blob with v added to every element.
func (b *Blob) AddScalar(v float32) *Blob {
	out := make([]float32, len(b.data))
	for i, x := range b.data {
		out[i] = x + v
	}
	return &Blob{shape: b.shape.Clone(), data: out}
}

// SwapAxes returns a new blob with axes a and b exchanged.
func (b *Blob) SwapAxes(a, c int) (*Blob, error) {
	ndim := len(b.shape)
	if a < 0 || a >= ndim || c < 0 || c >= ndim {
		return nil, fmt.Errorf("SwapAxes: axes (%d, %d) out of range for %dD blob", a, c, ndim)
	}
	axes := make([]int, ndim)
	for i := range axes {
		axes[i] = i
	}
	axes[a], axes[c] = axes[c], axes[a]
	return b.Permute(axes...)
}

// Permute returns a new blob whose axis i is the input's axis axes[i].
func (b *Blob) Permute(axes ...int) (*Blob, error) {
	ndim := len(b.shape)
	if len(axes) != ndim {
		return nil, fmt.Errorf("Permute: axes length %d must match blob dimensions %d", len(axes), ndim)
	}

	seen := make([]bool, ndim)
	newShape := make(Shape, ndim)
	for i, ax := range axes {
		if ax < 0 || ax >= ndim {
			return nil, fmt.Errorf("Permute: axis %d out of range [0, %d)", ax, ndim)
		}
		if seen[ax] {
			return nil, fmt.Errorf("Permute: duplicate axis %d", ax)
		}
		seen[ax] = true
		newShape[i] = b.shape[ax]
	}

	out := make([]float32, len(b.data))
	permuteData(b.data, out, b.shape, newShape, axes)
	return &Blob{shape: newShape, data: out}, nil
}

func permuteData(in, out []float32, oldShape, newShape Shape, axes []int) {
	ndim := len(oldShape)
	oldStrides := oldShape.Strides()

	idx := make([]int, ndim)
	for i := range out {
		tmp := i
		for j := ndim - 1; j >= 0; j-- {
			idx[j] = tmp % newShape[j]
			tmp /= newShape[j]
		}

		oldFlat := 0
		for j := 0; j < ndim; j++ {
			oldFlat += idx[j] * oldStrides[axes[j]]
		}
		out[i] = in[oldFlat]
	}
}

// String implements fmt.Stringer.
func (b *Blob) String() string {
	return fmt.Sprintf("Blob%v", []int(b.shape))
}
