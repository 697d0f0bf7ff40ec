// Package ncnn converts PyTorch autograd graphs into ncnn models.
//
// A graph is a topologically ordered list of autograd nodes, each naming its
// autograd type ("ConvNd", "BatchNorm", ...), its inputs, its attributes and
// its tensors. Every node converts to zero, one or two ncnn layers, and the
// result is written as an ncnn .param text file plus a .bin weight file.
//
// # Example Usage
//
//	import "github.com/born-ml/torch2ncnn/ncnn"
//
//	doc, err := ncnn.LoadGraph("resnet.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := ncnn.Export(ctx, doc, ncnn.ExportOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = ncnn.WriteModel(paramFile, binFile, res.Net)
//
// Single layers can be converted without a graph:
//
//	layers, err := ncnn.Convert("Threshold", &ncnn.ThresholdDesc{})
//
// # Supported Types
//
//   - Shape: data, Index, Concat
//   - Math: Addmm, Add, MulConstant, AddConstant, BatchNorm, Dropout
//   - Activation: Threshold, LeakyReLU, ELU, PReLU, Tanh, Softmax
//   - Spatial: ConvNd, MaxPool2d, AvgPool2d, UpsamplingBilinear2d
//
// Use [SupportedOps] to get the complete list.
package ncnn

import (
	"context"
	"io"

	"github.com/born-ml/torch2ncnn/internal/convert"
	"github.com/born-ml/torch2ncnn/internal/graph"
	internalncnn "github.com/born-ml/torch2ncnn/internal/ncnn"
	"github.com/born-ml/torch2ncnn/internal/weights"
)

// Layer is one converted ncnn layer.
type Layer = internalncnn.Layer

// Net is an ordered list of named ncnn layers.
type Net = internalncnn.Net

// Descriptor is the converter input for one autograd node.
type Descriptor = convert.Descriptor

// Descriptor types.
type (
	DataDesc       = convert.DataDesc
	IndexDesc      = convert.IndexDesc
	AxisIndex      = convert.AxisIndex
	AddmmDesc      = convert.AddmmDesc
	ConvDesc       = convert.ConvDesc
	PoolDesc       = convert.PoolDesc
	DropoutDesc    = convert.DropoutDesc
	UpsampleDesc   = convert.UpsampleDesc
	ActivationDesc = convert.ActivationDesc
	ThresholdDesc  = convert.ThresholdDesc
	TanhDesc       = convert.TanhDesc
	PReLUDesc      = convert.PReLUDesc
	ConstantDesc   = convert.ConstantDesc
	ConcatDesc     = convert.ConcatDesc
	EltwiseDesc    = convert.EltwiseDesc
	SoftmaxDesc    = convert.SoftmaxDesc
	BatchNormDesc  = convert.BatchNormDesc
	WeightLinks    = convert.WeightLinks
	Pair           = convert.Pair
)

// Registry maps autograd type names to converters.
type Registry = convert.Registry

// Graph is a serialized autograd graph.
type Graph = graph.Document

// ExportOptions configures Export.
type ExportOptions = graph.Options

// ExportResult is an exported network plus the layers that need manual fixes.
type ExportResult = graph.Result

// Conversion errors, for use with errors.Is.
var (
	ErrUnsupportedOperator = convert.ErrUnsupportedOperator
	ErrUnsupportedShape    = convert.ErrUnsupportedShape
	ErrUnsupportedConfig   = convert.ErrUnsupportedConfig
	ErrMissingWeightLink   = convert.ErrMissingWeightLink
	ErrDescriptorMismatch  = convert.ErrDescriptorMismatch
)

// NewRegistry returns a registry holding every built-in converter.
func NewRegistry() *Registry {
	return convert.NewRegistry()
}

// Convert converts one autograd node described by desc.
func Convert(typeName string, desc Descriptor) ([]Layer, error) {
	return convert.Convert(typeName, desc)
}

// SupportedOps returns the autograd type names that can be converted, sorted.
func SupportedOps() []string {
	return convert.Default().SupportedOps()
}

// LoadGraph reads a JSON or YAML graph document.
func LoadGraph(path string) (*Graph, error) {
	return graph.Load(path)
}

// Export converts every node of g into a network. When opts.Resolver is nil
// and g names a weights file, the file is opened for the duration of the
// call.
func Export(ctx context.Context, g *Graph, opts ExportOptions) (*ExportResult, error) {
	if opts.Resolver == nil {
		if path := g.WeightsPath(); path != "" {
			reader, err := weights.Open(path)
			if err != nil {
				return nil, err
			}
			defer func() {
				_ = reader.Close()
			}()
			opts.Resolver = reader
		}
	}
	return graph.Export(ctx, g, opts)
}

// WriteModel writes net as a .param file to param and its weights to bin.
func WriteModel(param, bin io.Writer, net *Net) error {
	if err := internalncnn.WriteParam(param, net); err != nil {
		return err
	}
	return internalncnn.WriteBin(bin, net)
}
