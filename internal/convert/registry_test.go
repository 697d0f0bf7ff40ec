package convert

import (
	"errors"
	"testing"

	"github.com/born-ml/torch2ncnn/internal/ncnn"
	"github.com/born-ml/torch2ncnn/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()

	vocabulary := []string{
		"data", "Addmm", "Threshold", "ConvNd", "MaxPool2d", "AvgPool2d",
		"Add", "BatchNorm", "Concat", "Dropout", "UpsamplingBilinear2d",
		"MulConstant", "AddConstant", "Softmax", "Tanh", "ELU", "LeakyReLU",
		"PReLU", "Index",
	}
	for _, op := range vocabulary {
		_, ok := r.Get(op)
		assert.True(t, ok, "expected %s to be registered", op)
	}
	assert.Len(t, r.SupportedOps(), len(vocabulary))
	assert.IsIncreasing(t, r.SupportedOps())
}

func TestRegistryConvertUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Convert("GRU", &ThresholdDesc{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedOperator))

	var opErr *UnsupportedOperatorError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "GRU", opErr.Type)
	assert.Contains(t, opErr.Known, "ConvNd")
	assert.Contains(t, err.Error(), "known types:")
}

func TestRegisterCustomOp(t *testing.T) {
	r := NewRegistry()
	r.Register("Sigmoid", func(Descriptor) ([]ncnn.Layer, error) {
		return single(ncnn.Layer{Type: "Sigmoid"}), nil
	})

	layers, err := r.Convert("Sigmoid", &TanhDesc{})
	require.NoError(t, err)
	assert.Equal(t, "Sigmoid", layers[0].Type)
}

func TestDescriptorMismatch(t *testing.T) {
	_, err := Convert("ConvNd", &PoolDesc{})
	require.ErrorIs(t, err, ErrDescriptorMismatch)
	assert.Contains(t, err.Error(), "expected conv descriptor, got pool")

	_, err = Convert("Dropout", nil)
	require.ErrorIs(t, err, ErrDescriptorMismatch)

	_, err = Convert("ConvNd", (*ConvDesc)(nil))
	require.ErrorIs(t, err, ErrDescriptorMismatch)
	assert.Contains(t, err.Error(), "nil conv descriptor")
}

// Every supported name produces records from the ncnn vocabulary.
func TestConvertVocabulary(t *testing.T) {
	w4 := tensor.Ones(tensor.Shape{2, 3, 3, 3})
	samples := map[string]Descriptor{
		"data":                 &DataDesc{Shape: tensor.Shape{1, 3, 224, 224}},
		"Addmm":                &AddmmDesc{WeightLinks{Weight: tensor.Ones(tensor.Shape{4, 8})}},
		"Threshold":            &ThresholdDesc{},
		"ConvNd":               &ConvDesc{WeightLinks: WeightLinks{Weight: w4}, Stride: Square(1), Padding: Square(1), Dilation: Square(1)},
		"MaxPool2d":            &PoolDesc{Kernel: Square(2), Stride: Square(2)},
		"AvgPool2d":            &PoolDesc{Kernel: Square(2), Stride: Square(2)},
		"Add":                  &EltwiseDesc{},
		"BatchNorm":            &BatchNormDesc{WeightLinks: WeightLinks{Weight: tensor.Ones(tensor.Shape{2})}, RunningMean: tensor.Zeros(tensor.Shape{2}), RunningVar: tensor.Ones(tensor.Shape{2}), Eps: 1e-5},
		"Concat":               &ConcatDesc{Dim: 1},
		"Dropout":              &DropoutDesc{P: 0.5},
		"UpsamplingBilinear2d": &UpsampleDesc{ScaleFactor: [2]float64{2, 2}, InputSize: []int{1, 3, 8, 8}},
		"MulConstant":          &ConstantDesc{Constant: 2},
		"AddConstant":          &ConstantDesc{},
		"Softmax":              &SoftmaxDesc{},
		"Tanh":                 &TanhDesc{},
		"ELU":                  &ActivationDesc{Args: []float64{1}},
		"LeakyReLU":            &ActivationDesc{Args: []float64{0.1}},
		"PReLU":                &PReLUDesc{WeightLinks{Weight: tensor.Full(tensor.Shape{3}, 0.25)}},
		"Index":                &IndexDesc{Index: []AxisIndex{{}}, SlicePoints: []int{2}},
	}

	r := NewRegistry()
	require.Len(t, samples, len(r.SupportedOps()))
	for name, desc := range samples {
		layers, err := r.Convert(name, desc)
		require.NoError(t, err, name)
		require.NotEmpty(t, layers, name)
		for _, l := range layers {
			assert.Contains(t, ncnn.Vocabulary, l.Type, name)
		}
	}
}

func TestConvertDoesNotMutate(t *testing.T) {
	weight := tensor.MustNew(tensor.Shape{2, 1, 1, 1}, []float32{1, 2})
	desc := &ConvDesc{
		WeightLinks: WeightLinks{Weight: weight},
		Stride:      Square(1),
		Dilation:    Square(1),
		Transposed:  true,
	}

	_, err := Convert("ConvNd", desc)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 1, 1, 1}, desc.Weight.Shape())
	assert.Equal(t, []float32{1, 2}, desc.Weight.Data())
}
