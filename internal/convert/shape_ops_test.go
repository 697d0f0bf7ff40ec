package convert

import (
	"testing"

	"github.com/born-ml/torch2ncnn/internal/ncnn"
	"github.com/born-ml/torch2ncnn/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertData(t *testing.T) {
	tests := []struct {
		name  string
		shape tensor.Shape
		want  []string
	}{
		{"nchw", tensor.Shape{1, 3, 224, 224}, []string{"3", "224", "224"}},
		{"nc", tensor.Shape{1, 10}, []string{"10", "-233", "-233"}},
		{"n", tensor.Shape{4}, []string{"-233", "-233", "-233"}},
		{"5d", tensor.Shape{1, 2, 3, 4, 5}, []string{"2", "3", "4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layers, err := Convert("data", &DataDesc{Shape: tt.shape})
			require.NoError(t, err)
			require.Len(t, layers, 1)
			assert.Equal(t, ncnn.TypeInput, layers[0].Type)
			assert.Equal(t, tt.want, layers[0].Params)
			assert.Empty(t, layers[0].Weights)
		})
	}
}

func TestConvertIndex(t *testing.T) {
	desc := &IndexDesc{
		Index:       []AxisIndex{{}, {Start: ptr(0), Stop: ptr(6)}},
		SlicePoints: []int{2, 5},
	}
	layers, err := Convert("Index", desc)
	require.NoError(t, err)
	require.Len(t, layers, 1)

	assert.Equal(t, ncnn.TypeSlice, layers[0].Type)
	assert.Equal(t, []string{"3", "2", "3", "-233"}, layers[0].Params)
}

func TestConvertIndex_NoSlicePoints(t *testing.T) {
	layers, err := Convert("Index", &IndexDesc{Index: []AxisIndex{{Scalar: true, Start: ptr(1)}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "-233"}, layers[0].Params)
}

func TestConvertIndex_NonTuple(t *testing.T) {
	layers, err := Convert("Index", &IndexDesc{SlicePoints: []int{2}})
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.True(t, layers[0].Empty())
	assert.Empty(t, layers[0].Params)
}

func TestConvertIndex_Decreasing(t *testing.T) {
	_, err := Convert("Index", &IndexDesc{Index: []AxisIndex{{}}, SlicePoints: []int{4, 2}})
	require.ErrorIs(t, err, ErrUnsupportedShape)
}

func TestConvertConcat(t *testing.T) {
	tests := []struct {
		dim      int
		wantType string
		want     []string
	}{
		{1, ncnn.TypeConcat, nil},
		{2, ncnn.TypeConcatV2, []string{"1"}},
		{3, ncnn.TypeConcatV2, []string{"2"}},
		{0, ncnn.TypeConcatV2, []string{"0"}},
	}
	for _, tt := range tests {
		layers, err := Convert("Concat", &ConcatDesc{Dim: tt.dim})
		require.NoError(t, err)
		assert.Equal(t, tt.wantType, layers[0].Type, "dim %d", tt.dim)
		assert.Equal(t, tt.want, layers[0].Params, "dim %d", tt.dim)
	}
}
