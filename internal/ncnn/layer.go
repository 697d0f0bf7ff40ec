package ncnn

import (
	"math"
	"strconv"

	"github.com/born-ml/torch2ncnn/internal/tensor"
)

// Unspecified is ncnn's marker for a dimension or offset that is not fixed.
const Unspecified = -233

// ncnn layer type names emitted by the converters.
const (
	TypeInput         = "Input"
	TypeInnerProduct  = "InnerProduct"
	TypeReLU          = "ReLU"
	TypeConvolution   = "Convolution"
	TypeDeconvolution = "Deconvolution"
	TypePooling       = "Pooling"
	TypeEltwise       = "Eltwise"
	TypeBatchNorm     = "BatchNorm"
	TypeScale         = "Scale"
	TypeConcat        = "Concat"
	TypeConcatV2      = "ConcatV2"
	TypeDropout       = "Dropout"
	TypeDropoutV2     = "DropoutV2"
	TypePower         = "Power"
	TypeSoftmax       = "Softmax"
	TypeTanH          = "TanH"
	TypeELU           = "ELU"
	TypePReLU         = "PReLU"
	TypeSlice         = "Slice"
)

// Vocabulary lists every layer type a converter may emit.
var Vocabulary = []string{
	TypeInput, TypeInnerProduct, TypeReLU, TypeConvolution, TypeDeconvolution,
	TypePooling, TypeEltwise, TypeBatchNorm, TypeScale, TypeConcat, TypeConcatV2,
	TypeDropout, TypeDropoutV2, TypePower, TypeSoftmax, TypeTanH, TypeELU,
	TypePReLU, TypeSlice,
}

// Layer is one converted ncnn layer: type, positional params and weight blobs.
// A Layer with an empty Type carries nothing and is dropped by the exporter.
type Layer struct {
	Type    string
	Params  []string
	Weights []*tensor.Blob
}

// Empty reports whether the record is the untyped placeholder.
func (l *Layer) Empty() bool {
	return l.Type == ""
}

// AddInt appends an integer parameter.
func (l *Layer) AddInt(v int) {
	l.Params = append(l.Params, FormatInt(v))
}

// AddBool appends a 0/1 flag parameter.
func (l *Layer) AddBool(v bool) {
	l.Params = append(l.Params, FormatBool(v))
}

// AddFloat appends a float parameter.
func (l *Layer) AddFloat(v float64) {
	l.Params = append(l.Params, FormatFloat(v))
}

// AddWeights appends weight blobs in load order.
func (l *Layer) AddWeights(blobs ...*tensor.Blob) {
	l.Weights = append(l.Weights, blobs...)
}

// WeightCount returns the number of float32 values across all weight blobs.
func (l *Layer) WeightCount() int {
	n := 0
	for _, w := range l.Weights {
		n += w.Len()
	}
	return n
}

// FormatInt renders an integer parameter like printf("%d").
func FormatInt(v int) string {
	return strconv.Itoa(v)
}

// FormatBool renders a flag as "1" or "0".
func FormatBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// FormatFloat renders a float parameter like C printf("%f"): six decimals,
// and "inf", "-inf" or "nan" for non-finite values.
func FormatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "nan"
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}
