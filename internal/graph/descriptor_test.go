package graph

import (
	"fmt"
	"testing"

	"github.com/born-ml/torch2ncnn/internal/convert"
	"github.com/born-ml/torch2ncnn/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapResolver map[string]*tensor.Blob

func (m mapResolver) Tensor(name string) (*tensor.Blob, error) {
	b, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("tensor %s not found", name)
	}
	return b, nil
}

func TestDescriptor_ConvDefaults(t *testing.T) {
	n := &Node{
		Name:    "conv",
		Type:    "ConvNd",
		Attrs:   map[string]any{"padding": []any{1.0, 1.0}},
		Tensors: map[string]TensorRef{"weight": {Ref: "features.0.weight"}},
	}
	weight := tensor.Ones(tensor.Shape{4, 3, 3, 3})

	d, err := n.Descriptor(mapResolver{"features.0.weight": weight})
	require.NoError(t, err)

	conv, ok := d.(*convert.ConvDesc)
	require.True(t, ok)
	assert.Same(t, weight, conv.Weight)
	assert.Nil(t, conv.Bias)
	assert.Equal(t, convert.Square(1), conv.Stride)
	assert.Equal(t, convert.Square(1), conv.Padding)
	assert.Equal(t, convert.Square(1), conv.Dilation)
	assert.False(t, conv.Transposed)
}

func TestDescriptor_RefWithoutResolver(t *testing.T) {
	n := &Node{Name: "fc", Type: "Addmm", Tensors: map[string]TensorRef{"weight": {Ref: "fc.weight"}}}
	_, err := n.Descriptor(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no weights file")

	_, err = n.Descriptor(mapResolver{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fc.weight")
}

func TestDescriptor_PoolStrideDefaultsToKernel(t *testing.T) {
	n := &Node{Name: "pool", Type: "AvgPool2d", Attrs: map[string]any{"kernel_size": 3}}
	d, err := n.Descriptor(nil)
	require.NoError(t, err)

	pool := d.(*convert.PoolDesc)
	assert.Equal(t, convert.Square(3), pool.Kernel)
	assert.Equal(t, convert.Square(3), pool.Stride)
	assert.Equal(t, convert.Square(0), pool.Padding)

	_, err = (&Node{Name: "p", Type: "MaxPool2d"}).Descriptor(nil)
	require.ErrorIs(t, err, ErrInvalidDocument)
}

func TestDescriptor_Index(t *testing.T) {
	n := &Node{Name: "idx", Type: "Index", Attrs: map[string]any{
		"index":       []any{nil, map[string]any{"start": 0.0, "stop": 4.0}, 2.0},
		"slice_point": []any{2.0},
	}}
	d, err := n.Descriptor(nil)
	require.NoError(t, err)

	idx := d.(*convert.IndexDesc)
	require.True(t, idx.IsTuple())
	require.Len(t, idx.Index, 3)
	assert.Nil(t, idx.Index[0].Start)
	assert.Equal(t, 4, *idx.Index[1].Stop)
	assert.True(t, idx.Index[2].Scalar)
	assert.Equal(t, []int{2}, idx.SlicePoints)

	n.Attrs["index"] = 3.0
	d, err = n.Descriptor(nil)
	require.NoError(t, err)
	assert.False(t, d.(*convert.IndexDesc).IsTuple())
}

func TestDescriptor_Activations(t *testing.T) {
	d, err := (&Node{Name: "elu", Type: "ELU"}).Descriptor(nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.0}, d.(*convert.ActivationDesc).Args)

	d, err = (&Node{Name: "lrelu", Type: "LeakyReLU", Attrs: map[string]any{"args": []any{0.2}}}).Descriptor(nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.2}, d.(*convert.ActivationDesc).Args)

	d, err = (&Node{Name: "lrelu", Type: "LeakyReLU"}).Descriptor(nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.01}, d.(*convert.ActivationDesc).Args)
}

func TestDescriptor_Upsample(t *testing.T) {
	n := &Node{Name: "up", Type: "UpsamplingBilinear2d", Attrs: map[string]any{
		"scale_factor": 2,
		"input_size":   []any{1, 16, 8, 8},
	}}
	d, err := n.Descriptor(nil)
	require.NoError(t, err)
	up := d.(*convert.UpsampleDesc)
	assert.Equal(t, [2]float64{2, 2}, up.ScaleFactor)
	assert.Equal(t, []int{1, 16, 8, 8}, up.InputSize)
}

func TestDescriptor_BadAttributes(t *testing.T) {
	tests := []*Node{
		{Name: "a", Type: "Dropout", Attrs: map[string]any{"p": "half"}},
		{Name: "b", Type: "Concat", Attrs: map[string]any{"dim": 1.5}},
		{Name: "c", Type: "ConvNd", Attrs: map[string]any{"stride": []any{1, 2, 3}}},
		{Name: "d", Type: "ConvNd", Attrs: map[string]any{"transposed": "yes"}},
		{Name: "e", Type: "data", Attrs: map[string]any{"shape": []any{1, "x"}}},
		{Name: "f", Type: "Addmm", Tensors: map[string]TensorRef{"weight": {Shape: []int{2, 2}, Data: []float32{1}}}},
	}
	for _, n := range tests {
		_, err := n.Descriptor(nil)
		require.Error(t, err, n.Name)
	}
}

func TestDescriptor_UnknownType(t *testing.T) {
	_, err := (&Node{Name: "x", Type: "GRU"}).Descriptor(nil)
	require.ErrorIs(t, err, ErrNoDescriptor)
}

// Every converter in the default registry has a builder.
func TestDescriptor_CoversRegistry(t *testing.T) {
	for _, op := range convert.Default().SupportedOps() {
		_, ok := builders[op]
		assert.True(t, ok, op)
	}
}
