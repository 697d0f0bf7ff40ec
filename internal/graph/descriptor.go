package graph

import (
	"errors"
	"fmt"

	"github.com/born-ml/torch2ncnn/internal/convert"
	"github.com/born-ml/torch2ncnn/internal/tensor"
)

// ErrNoDescriptor is returned for a registered type name that has no
// descriptor builder.
var ErrNoDescriptor = errors.New("no descriptor builder for node type")

// TensorResolver looks up tensors referenced by name.
type TensorResolver interface {
	Tensor(name string) (*tensor.Blob, error)
}

type builder func(n *Node, res TensorResolver) (convert.Descriptor, error)

var builders = map[string]builder{
	"data":                 buildData,
	"Index":                buildIndex,
	"Addmm":                buildAddmm,
	"Threshold":            func(*Node, TensorResolver) (convert.Descriptor, error) { return &convert.ThresholdDesc{}, nil },
	"Tanh":                 func(*Node, TensorResolver) (convert.Descriptor, error) { return &convert.TanhDesc{}, nil },
	"ConvNd":               buildConv,
	"MaxPool2d":            buildPool,
	"AvgPool2d":            buildPool,
	"Add":                  buildEltwise,
	"BatchNorm":            buildBatchNorm,
	"Concat":               buildConcat,
	"Dropout":              buildDropout,
	"UpsamplingBilinear2d": buildUpsample,
	"MulConstant":          buildConstant,
	"AddConstant":          buildConstant,
	"Softmax":              buildSoftmax,
	"ELU":                  activationBuilder("alpha", 1.0),
	"LeakyReLU":            activationBuilder("negative_slope", 0.01),
	"PReLU":                buildPReLU,
}

// Descriptor builds the converter input for the node.
func (n *Node) Descriptor(res TensorResolver) (convert.Descriptor, error) {
	b, ok := builders[n.Type]
	if !ok {
		return nil, fmt.Errorf("node %q: %w %q", n.Name, ErrNoDescriptor, n.Type)
	}
	desc, err := b(n, res)
	if err != nil {
		return nil, fmt.Errorf("node %q: %w", n.Name, err)
	}
	return desc, nil
}

// tensor returns the named tensor, or nil when the node does not list it.
func (n *Node) tensor(name string, res TensorResolver) (*tensor.Blob, error) {
	ref, ok := n.Tensors[name]
	if !ok {
		return nil, nil
	}

	if ref.Ref != "" {
		if res == nil {
			return nil, fmt.Errorf("tensor %q references %q but no weights file is loaded", name, ref.Ref)
		}
		blob, err := res.Tensor(ref.Ref)
		if err != nil {
			return nil, fmt.Errorf("tensor %q: %w", name, err)
		}
		return blob, nil
	}

	shape := tensor.Shape(ref.Shape)
	if len(shape) == 0 {
		shape = tensor.Shape{len(ref.Data)}
	}
	blob, err := tensor.New(shape, ref.Data)
	if err != nil {
		return nil, fmt.Errorf("tensor %q: %w", name, err)
	}
	return blob, nil
}

func (n *Node) weightLinks(res TensorResolver) (convert.WeightLinks, error) {
	weight, err := n.tensor("weight", res)
	if err != nil {
		return convert.WeightLinks{}, err
	}
	bias, err := n.tensor("bias", res)
	if err != nil {
		return convert.WeightLinks{}, err
	}
	return convert.WeightLinks{Weight: weight, Bias: bias}, nil
}

func buildData(n *Node, _ TensorResolver) (convert.Descriptor, error) {
	shape, err := n.attrInts("shape")
	if err != nil {
		return nil, err
	}
	return &convert.DataDesc{Shape: shape}, nil
}

func buildIndex(n *Node, _ TensorResolver) (convert.Descriptor, error) {
	index, err := n.attrIndex("index")
	if err != nil {
		return nil, err
	}
	points, err := n.attrInts("slice_point")
	if err != nil {
		return nil, err
	}
	return &convert.IndexDesc{Index: index, SlicePoints: points}, nil
}

func buildAddmm(n *Node, res TensorResolver) (convert.Descriptor, error) {
	links, err := n.weightLinks(res)
	if err != nil {
		return nil, err
	}
	return &convert.AddmmDesc{WeightLinks: links}, nil
}

func buildConv(n *Node, res TensorResolver) (convert.Descriptor, error) {
	links, err := n.weightLinks(res)
	if err != nil {
		return nil, err
	}
	desc := &convert.ConvDesc{WeightLinks: links}
	if desc.Stride, err = n.attrPair("stride", convert.Square(1)); err != nil {
		return nil, err
	}
	if desc.Padding, err = n.attrPair("padding", convert.Square(0)); err != nil {
		return nil, err
	}
	if desc.Dilation, err = n.attrPair("dilation", convert.Square(1)); err != nil {
		return nil, err
	}
	if desc.Transposed, err = n.attrBool("transposed", false); err != nil {
		return nil, err
	}
	return desc, nil
}

func buildPool(n *Node, _ TensorResolver) (convert.Descriptor, error) {
	kernel, err := n.attrPair("kernel_size", convert.Pair{})
	if err != nil {
		return nil, err
	}
	if kernel == (convert.Pair{}) {
		return nil, attrError(n, "kernel_size", "set", nil)
	}
	desc := &convert.PoolDesc{Kernel: kernel}
	// PyTorch pools default the stride to the kernel size.
	if desc.Stride, err = n.attrPair("stride", kernel); err != nil {
		return nil, err
	}
	if desc.Padding, err = n.attrPair("padding", convert.Square(0)); err != nil {
		return nil, err
	}
	if desc.GlobalPooling, err = n.attrBool("global_pooling", false); err != nil {
		return nil, err
	}
	return desc, nil
}

func buildEltwise(n *Node, _ TensorResolver) (convert.Descriptor, error) {
	coeffs, err := n.attrFloats("coefficients")
	if err != nil {
		return nil, err
	}
	return &convert.EltwiseDesc{Coefficients: coeffs}, nil
}

func buildBatchNorm(n *Node, res TensorResolver) (convert.Descriptor, error) {
	links, err := n.weightLinks(res)
	if err != nil {
		return nil, err
	}
	desc := &convert.BatchNormDesc{WeightLinks: links}
	if desc.RunningMean, err = n.tensor("running_mean", res); err != nil {
		return nil, err
	}
	if desc.RunningVar, err = n.tensor("running_var", res); err != nil {
		return nil, err
	}
	if desc.Eps, err = n.attrFloat("eps", 1e-5); err != nil {
		return nil, err
	}
	return desc, nil
}

func buildConcat(n *Node, _ TensorResolver) (convert.Descriptor, error) {
	dim, err := n.attrInt("dim", 0)
	if err != nil {
		return nil, err
	}
	return &convert.ConcatDesc{Dim: dim}, nil
}

func buildDropout(n *Node, _ TensorResolver) (convert.Descriptor, error) {
	p, err := n.attrFloat("p", 0.5)
	if err != nil {
		return nil, err
	}
	return &convert.DropoutDesc{P: p}, nil
}

func buildUpsample(n *Node, _ TensorResolver) (convert.Descriptor, error) {
	scale, err := n.attrFloats("scale_factor")
	if err != nil {
		return nil, err
	}
	var sf [2]float64
	switch len(scale) {
	case 1:
		sf = [2]float64{scale[0], scale[0]}
	case 2:
		sf = [2]float64{scale[0], scale[1]}
	default:
		return nil, attrError(n, "scale_factor", "a number or a pair", n.Attrs["scale_factor"])
	}
	size, err := n.attrInts("input_size")
	if err != nil {
		return nil, err
	}
	return &convert.UpsampleDesc{ScaleFactor: sf, InputSize: size}, nil
}

func buildConstant(n *Node, _ TensorResolver) (convert.Descriptor, error) {
	c, err := n.attrFloat("constant", 0)
	if err != nil {
		return nil, err
	}
	return &convert.ConstantDesc{Constant: c}, nil
}

func buildSoftmax(n *Node, _ TensorResolver) (convert.Descriptor, error) {
	dim, err := n.attrOptInt("dim")
	if err != nil {
		return nil, err
	}
	return &convert.SoftmaxDesc{Dim: dim}, nil
}

// activationBuilder reads "args" (autograd additional_args) and falls back
// to the named keyword with its PyTorch default.
func activationBuilder(keyword string, def float64) builder {
	return func(n *Node, _ TensorResolver) (convert.Descriptor, error) {
		args, err := n.attrFloats("args")
		if err != nil {
			return nil, err
		}
		if len(args) == 0 {
			v, err := n.attrFloat(keyword, def)
			if err != nil {
				return nil, err
			}
			args = []float64{v}
		}
		return &convert.ActivationDesc{Args: args}, nil
	}
}

func buildPReLU(n *Node, res TensorResolver) (convert.Descriptor, error) {
	weight, err := n.tensor("weight", res)
	if err != nil {
		return nil, err
	}
	return &convert.PReLUDesc{WeightLinks: convert.WeightLinks{Weight: weight}}, nil
}
