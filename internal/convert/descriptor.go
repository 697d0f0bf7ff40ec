package convert

import (
	"fmt"

	"github.com/born-ml/torch2ncnn/internal/tensor"
)

// Descriptor is the read-only view of one source layer handed to a converter.
// Each operator family has its own concrete descriptor type.
type Descriptor interface {
	// Family names the descriptor type, for diagnostics.
	Family() string
}

// WeightSource is implemented by descriptors that own a learned weight tensor.
type WeightSource interface {
	WeightTensor() (*tensor.Blob, error)
}

// BiasSource is implemented by descriptors with an optional bias tensor.
type BiasSource interface {
	OptionalBiasTensor() (*tensor.Blob, bool)
}

// Pair holds a (height, width) spatial parameter.
type Pair [2]int

// Square returns the pair (v, v).
func Square(v int) Pair {
	return Pair{v, v}
}

// WeightLinks stands in for the producer links that lead from a layer to
// its parameter tensors.
type WeightLinks struct {
	Weight *tensor.Blob
	Bias   *tensor.Blob
}

// WeightTensor returns the weight, or ErrMissingWeightLink when it is absent.
func (w WeightLinks) WeightTensor() (*tensor.Blob, error) {
	if w.Weight == nil {
		return nil, fmt.Errorf("weight: %w", ErrMissingWeightLink)
	}
	return w.Weight, nil
}

// OptionalBiasTensor returns the bias and whether it is present.
func (w WeightLinks) OptionalBiasTensor() (*tensor.Blob, bool) {
	return w.Bias, w.Bias != nil
}

// DataDesc describes the graph input.
type DataDesc struct {
	Shape tensor.Shape // Declared input shape, batch first (N, C, H, W)
}

// AxisIndex is one element of an indexing tuple: either a single integer
// (Start only, Scalar set) or a start:stop:step slice with optional bounds.
type AxisIndex struct {
	Scalar bool
	Start  *int
	Stop   *int
	Step   *int
}

// IndexDesc describes x[index] split into segments at SlicePoints.
type IndexDesc struct {
	Index       []AxisIndex // nil when the index expression is not a tuple
	SlicePoints []int       // Cumulative split offsets along the sliced axis
}

// IsTuple reports whether the index expression was a per-axis tuple.
func (d *IndexDesc) IsTuple() bool {
	return d.Index != nil
}

// AddmmDesc describes a fully connected layer (bias + input @ weight^T).
type AddmmDesc struct {
	WeightLinks
}

// ConvDesc describes a 2-D convolution or transposed convolution.
// Weight is (out, in, kH, kW) for both; PyTorch stores transposed weights
// as (in, out, kH, kW) and the converter accounts for that.
type ConvDesc struct {
	WeightLinks
	Stride     Pair
	Padding    Pair
	Dilation   Pair
	Transposed bool
}

// PoolDesc describes a max or average 2-D pooling layer.
type PoolDesc struct {
	Kernel        Pair
	Stride        Pair
	Padding       Pair
	GlobalPooling bool
}

// DropoutDesc describes a dropout layer with drop probability P.
type DropoutDesc struct {
	P float64
}

// UpsampleDesc describes bilinear upsampling by an integer factor.
type UpsampleDesc struct {
	ScaleFactor [2]float64
	InputSize   []int // Input shape (N, C, H, W)
}

// ActivationDesc carries the extra scalar arguments of an activation:
// ELU alpha or LeakyReLU negative slope in Args[0].
type ActivationDesc struct {
	Args []float64
}

// ThresholdDesc describes a plain ReLU (autograd Threshold).
type ThresholdDesc struct{}

// TanhDesc describes a tanh activation.
type TanhDesc struct{}

// PReLUDesc describes a parametric ReLU with per-channel slopes in Weight.
type PReLUDesc struct {
	WeightLinks
}

// ConstantDesc describes MulConstant and AddConstant. AddConstant's value
// is not recorded by autograd, so Constant is only read for MulConstant.
type ConstantDesc struct {
	Constant float64
}

// ConcatDesc describes concatenation along Dim (PyTorch numbering).
type ConcatDesc struct {
	Dim int
}

// EltwiseDesc describes an elementwise sum. Coefficients, when present,
// scale each input.
type EltwiseDesc struct {
	Coefficients []float64
}

// SoftmaxDesc describes a softmax. Dim is nil when the graph does not record it.
type SoftmaxDesc struct {
	Dim *int
}

// BatchNormDesc describes an inference-mode batch normalization with the
// affine weight and bias in WeightLinks.
type BatchNormDesc struct {
	WeightLinks
	RunningMean *tensor.Blob
	RunningVar  *tensor.Blob
	Eps         float64
}

func (*DataDesc) Family() string       { return "data" }
func (*IndexDesc) Family() string      { return "index" }
func (*AddmmDesc) Family() string      { return "addmm" }
func (*ConvDesc) Family() string       { return "conv" }
func (*PoolDesc) Family() string       { return "pool" }
func (*DropoutDesc) Family() string    { return "dropout" }
func (*UpsampleDesc) Family() string   { return "upsample" }
func (*ActivationDesc) Family() string { return "activation" }
func (*ThresholdDesc) Family() string  { return "threshold" }
func (*TanhDesc) Family() string       { return "tanh" }
func (*PReLUDesc) Family() string      { return "prelu" }
func (*ConstantDesc) Family() string   { return "constant" }
func (*ConcatDesc) Family() string     { return "concat" }
func (*EltwiseDesc) Family() string    { return "eltwise" }
func (*SoftmaxDesc) Family() string    { return "softmax" }
func (*BatchNormDesc) Family() string  { return "batchnorm" }

// as asserts that d has the descriptor type T expected by op.
func as[T Descriptor](op string, d Descriptor) (T, error) {
	v, ok := d.(T)
	var zero T
	if ok && any(v) == any(zero) {
		return zero, fmt.Errorf("%s: nil %s descriptor: %w", op, zero.Family(), ErrDescriptorMismatch)
	}
	if !ok {
		got := "<nil>"
		if d != nil {
			got = d.Family()
		}
		return zero, fmt.Errorf("%s: expected %s descriptor, got %s: %w", op, zero.Family(), got, ErrDescriptorMismatch)
	}
	return v, nil
}
