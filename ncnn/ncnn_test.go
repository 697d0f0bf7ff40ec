package ncnn_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/torch2ncnn/internal/logger"
	"github.com/born-ml/torch2ncnn/ncnn"
)

func TestSupportedOps(t *testing.T) {
	ops := ncnn.SupportedOps()
	assert.Len(t, ops, 19)
	assert.Contains(t, ops, "data")
	assert.Contains(t, ops, "PReLU")
}

func TestConvert(t *testing.T) {
	layers, err := ncnn.Convert("Threshold", &ncnn.ThresholdDesc{})
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.Equal(t, "ReLU", layers[0].Type)

	_, err = ncnn.Convert("LSTM", nil)
	assert.True(t, errors.Is(err, ncnn.ErrUnsupportedOperator))
}

func TestLoadExportWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "nodes": [
    {"name": "data", "type": "data", "attrs": {"shape": [1, 3, 8, 8]}},
    {"name": "pool", "type": "MaxPool2d", "inputs": ["data"], "attrs": {"kernel_size": [2, 2]}},
    {"name": "drop", "type": "Dropout", "inputs": ["pool"]}
  ]
}`), 0o600))

	g, err := ncnn.LoadGraph(path)
	require.NoError(t, err)

	ctx := logger.WithContext(context.Background(), logger.Discard())
	res, err := ncnn.Export(ctx, g, ncnn.ExportOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Patches)

	var param, bin bytes.Buffer
	require.NoError(t, ncnn.WriteModel(&param, &bin, res.Net))
	assert.True(t, strings.HasPrefix(param.String(), "7767517\n3 3\n"), param.String())
	assert.Contains(t, param.String(), "Pooling")
	assert.Zero(t, bin.Len())
}

func TestExport_MissingWeightsFile(t *testing.T) {
	g := &ncnn.Graph{WeightsFile: "missing.safetensors", Dir: t.TempDir()}
	_, err := ncnn.Export(context.Background(), g, ncnn.ExportOptions{})
	assert.Error(t, err)
}
