package graph

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/born-ml/torch2ncnn/internal/convert"
	"github.com/born-ml/torch2ncnn/internal/logger"
	"github.com/born-ml/torch2ncnn/internal/ncnn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietCtx() context.Context {
	return logger.WithContext(context.Background(), logger.Discard())
}

const pipelineYAML = `
name: pipeline
nodes:
  - name: data
    type: data
    attrs: {shape: [1, 2, 4, 4]}
  - name: bn
    type: BatchNorm
    inputs: [data]
    attrs: {eps: 0.001}
    tensors:
      running_mean: {data: [0, 0]}
      running_var: {data: [1, 1]}
      weight: {data: [1, 2]}
      bias: {data: [0, 1]}
  - name: relu
    type: Threshold
    inputs: [bn]
  - name: view
    type: Index
    inputs: [relu]
    attrs: {index: 0}
  - name: shift
    type: AddConstant
    inputs: [view]
  - name: cat
    type: Concat
    inputs: [shift, relu]
    attrs: {dim: 1}
`

func TestExport(t *testing.T) {
	doc, err := Parse([]byte(pipelineYAML), FormatYAML)
	require.NoError(t, err)

	res, err := Export(quietCtx(), doc, Options{})
	require.NoError(t, err)
	net := res.Net

	types := make([]string, len(net.Nodes))
	names := make([]string, len(net.Nodes))
	for i, n := range net.Nodes {
		types[i] = n.Type
		names[i] = n.Name
	}
	assert.Equal(t, []string{"Input", "BatchNorm", "Scale", "ReLU", "Power", "Concat"}, types)
	assert.Equal(t, []string{"data", "bn", "bn_scale", "relu", "shift", "cat"}, names)

	bn, scale := net.Nodes[1], net.Nodes[2]
	assert.Equal(t, []string{"data"}, bn.Bottoms)
	assert.Equal(t, []string{"bn_batchnorm"}, bn.Tops)
	assert.Equal(t, []string{"bn_batchnorm"}, scale.Bottoms)
	assert.Equal(t, []string{"bn"}, scale.Tops)

	// The non-tuple Index is dropped; its consumer reads relu directly.
	assert.Equal(t, []string{"relu"}, net.Nodes[4].Bottoms)
	assert.Equal(t, []string{"shift", "relu"}, net.Nodes[5].Bottoms)

	assert.Equal(t, []string{"shift"}, res.Patches)

	var param bytes.Buffer
	require.NoError(t, ncnn.WriteParam(&param, net))
	lines := strings.Split(param.String(), "\n")
	assert.Equal(t, "6 6", lines[1])
}

func TestExport_UnknownOperator(t *testing.T) {
	doc := &Document{Nodes: []Node{
		{Name: "data", Type: "data"},
		{Name: "rnn", Type: "GRU", Inputs: []string{"data"}},
	}}
	_, err := Export(quietCtx(), doc, Options{})
	require.ErrorIs(t, err, convert.ErrUnsupportedOperator)
	assert.Contains(t, err.Error(), `node "rnn"`)
}

func TestExport_ConversionError(t *testing.T) {
	doc := &Document{Nodes: []Node{
		{Name: "data", Type: "data"},
		{Name: "pool", Type: "MaxPool2d", Inputs: []string{"data"}, Attrs: map[string]any{"kernel_size": []any{2, 3}}},
	}}
	_, err := Export(quietCtx(), doc, Options{})
	require.ErrorIs(t, err, convert.ErrUnsupportedShape)
}

func TestExport_Canceled(t *testing.T) {
	doc, err := Parse([]byte(pipelineYAML), FormatYAML)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(quietCtx())
	cancel()
	_, err = Export(ctx, doc, Options{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestExport_SliceOutputs(t *testing.T) {
	doc := &Document{Nodes: []Node{
		{Name: "data", Type: "data", Attrs: map[string]any{"shape": []any{1, 8, 4, 4}}},
		{
			Name:    "split",
			Type:    "Index",
			Inputs:  []string{"data"},
			Outputs: []string{"head", "mid", "tail"},
			Attrs: map[string]any{
				"index":       []any{nil, map[string]any{"start": 0, "stop": 8}},
				"slice_point": []any{3, 5},
			},
		},
	}}

	res, err := Export(quietCtx(), doc, Options{})
	require.NoError(t, err)
	require.Len(t, res.Net.Nodes, 2)

	slice := res.Net.Nodes[1]
	assert.Equal(t, ncnn.TypeSlice, slice.Type)
	assert.Equal(t, []string{"3", "3", "2", "-233"}, slice.Params)

	var param bytes.Buffer
	require.NoError(t, ncnn.WriteParam(&param, res.Net))
	lines := strings.Split(strings.TrimRight(param.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "2 4", lines[1])
	// Three segments: 3 channels, 2 channels, then the rest.
	assert.True(t, strings.HasSuffix(lines[3], "1 3 data head mid tail -23300=3,3,2,-233"), lines[3])
}
