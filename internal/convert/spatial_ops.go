package convert

import (
	"github.com/born-ml/torch2ncnn/internal/ncnn"
	"github.com/born-ml/torch2ncnn/internal/tensor"
)

// Pooling types.
const (
	poolMax = 0
	poolAvg = 1
)

// registerSpatialOps adds convolution, pooling and upsampling to the registry.
func (r *Registry) registerSpatialOps() {
	r.Register("ConvNd", convertConv)
	r.Register("MaxPool2d", func(d Descriptor) ([]ncnn.Layer, error) {
		return convertPool("MaxPool2d", poolMax, d)
	})
	r.Register("AvgPool2d", func(d Descriptor) ([]ncnn.Layer, error) {
		return convertPool("AvgPool2d", poolAvg, d)
	})
	r.Register("UpsamplingBilinear2d", convertUpsampleBilinear)
}

// convertConv emits Convolution or Deconvolution with params
// [num_output, kernel, dilation, stride, pad, bias_term, weight_data_size]
// and weights [tag, weight, bias?].
func convertConv(d Descriptor) ([]ncnn.Layer, error) {
	const op = "ConvNd"
	desc, err := as[*ConvDesc](op, d)
	if err != nil {
		return nil, err
	}
	weight, err := desc.WeightTensor()
	if err != nil {
		return nil, withOp(op, err)
	}

	shape := weight.Shape()
	if len(shape) != 4 {
		return nil, shapeErr(op, "weight must be 4-D", shape...)
	}
	outC, inC, kH, kW := shape[0], shape[1], shape[2], shape[3]

	if kH != kW {
		return nil, shapeErr(op, "kernel must be square", kH, kW)
	}
	if err := requireSquare(op, "stride", desc.Stride); err != nil {
		return nil, err
	}
	if err := requireSquare(op, "padding", desc.Padding); err != nil {
		return nil, err
	}

	var layer ncnn.Layer
	if desc.Transposed {
		layer.Type = ncnn.TypeDeconvolution
		layer.AddInt(inC)
		// ncnn deconvolution weights are (out, in, kH, kW); PyTorch keeps
		// them as (in, out, kH, kW).
		weight, err = weight.SwapAxes(0, 1)
		if err != nil {
			return nil, withOp(op, err)
		}
	} else {
		layer.Type = ncnn.TypeConvolution
		layer.AddInt(outC)
	}

	layer.AddInt(kH)
	layer.AddInt(desc.Dilation[0])
	layer.AddInt(desc.Stride[0])
	layer.AddInt(desc.Padding[0])

	bias, hasBias := desc.OptionalBiasTensor()
	layer.AddBool(hasBias)
	layer.AddInt(weight.Len())

	layer.AddWeights(tensor.Scalar0(), weight)
	if hasBias {
		layer.AddWeights(bias)
	}
	return single(layer), nil
}

// convertPool emits Pooling [pooling_type, kernel, stride, pad, global].
func convertPool(op string, poolType int, d Descriptor) ([]ncnn.Layer, error) {
	desc, err := as[*PoolDesc](op, d)
	if err != nil {
		return nil, err
	}
	if desc.GlobalPooling {
		return nil, withOp(op, errConfig("global pooling"))
	}
	if err := requireSquare(op, "kernel", desc.Kernel); err != nil {
		return nil, err
	}
	if err := requireSquare(op, "stride", desc.Stride); err != nil {
		return nil, err
	}
	if err := requireSquare(op, "padding", desc.Padding); err != nil {
		return nil, err
	}

	layer := ncnn.Layer{Type: ncnn.TypePooling}
	layer.AddInt(poolType)
	layer.AddInt(desc.Kernel[0])
	layer.AddInt(desc.Stride[0])
	layer.AddInt(desc.Padding[0])
	layer.AddBool(false)
	return single(layer), nil
}

// convertUpsampleBilinear emits a fixed-weight Deconvolution that performs
// bilinear upsampling by an integer factor.
func convertUpsampleBilinear(d Descriptor) ([]ncnn.Layer, error) {
	const op = "UpsamplingBilinear2d"
	desc, err := as[*UpsampleDesc](op, d)
	if err != nil {
		return nil, err
	}

	sf := desc.ScaleFactor
	if sf[0] != sf[1] {
		return nil, shapeErr(op, "scale factor must be equal in both spatial dimensions", int(sf[0]), int(sf[1]))
	}
	factor := int(sf[0])
	if factor < 1 {
		return nil, shapeErr(op, "scale factor must be at least 1", factor)
	}
	if len(desc.InputSize) < 2 || desc.InputSize[1] < 1 {
		return nil, shapeErr(op, "input size must include a positive channel dimension", desc.InputSize...)
	}
	channels := desc.InputSize[1]

	k := BilinearKernelSize(factor)
	weight := FillBilinear(channels, k)

	layer := ncnn.Layer{Type: ncnn.TypeDeconvolution}
	layer.AddInt(channels)
	layer.AddInt(k)
	layer.AddInt(1) // dilation
	layer.AddInt(factor)
	layer.AddInt(BilinearPad(factor))
	layer.AddBool(false)
	layer.AddInt(weight.Len())
	layer.AddWeights(tensor.Scalar0(), weight)
	return single(layer), nil
}
