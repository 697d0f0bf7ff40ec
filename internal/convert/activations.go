package convert

import (
	"github.com/born-ml/torch2ncnn/internal/ncnn"
)

// registerActivations adds activation operators to the registry.
func (r *Registry) registerActivations() {
	r.Register("Threshold", convertThreshold)
	r.Register("LeakyReLU", convertLeakyReLU)
	r.Register("ELU", convertELU)
	r.Register("PReLU", convertPReLU)
	r.Register("Tanh", convertTanh)
	r.Register("Softmax", convertSoftmax)
}

func convertThreshold(d Descriptor) ([]ncnn.Layer, error) {
	if _, err := as[*ThresholdDesc]("Threshold", d); err != nil {
		return nil, err
	}
	layer := ncnn.Layer{Type: ncnn.TypeReLU}
	layer.AddFloat(0)
	return single(layer), nil
}

func convertLeakyReLU(d Descriptor) ([]ncnn.Layer, error) {
	slope, err := firstArg("LeakyReLU", d)
	if err != nil {
		return nil, err
	}
	layer := ncnn.Layer{Type: ncnn.TypeReLU}
	layer.AddFloat(slope)
	return single(layer), nil
}

func convertELU(d Descriptor) ([]ncnn.Layer, error) {
	alpha, err := firstArg("ELU", d)
	if err != nil {
		return nil, err
	}
	layer := ncnn.Layer{Type: ncnn.TypeELU}
	layer.AddFloat(alpha)
	return single(layer), nil
}

func convertPReLU(d Descriptor) ([]ncnn.Layer, error) {
	desc, err := as[*PReLUDesc]("PReLU", d)
	if err != nil {
		return nil, err
	}
	weight, err := desc.WeightTensor()
	if err != nil {
		return nil, withOp("PReLU", err)
	}

	layer := ncnn.Layer{Type: ncnn.TypePReLU}
	layer.AddInt(weight.Len())
	layer.AddWeights(weight)
	return single(layer), nil
}

func convertTanh(d Descriptor) ([]ncnn.Layer, error) {
	if _, err := as[*TanhDesc]("Tanh", d); err != nil {
		return nil, err
	}
	return single(ncnn.Layer{Type: ncnn.TypeTanH}), nil
}

// convertSoftmax always emits axis 0, the channel axis of an ncnn blob.
// A recorded dim other than the PyTorch channel dim cannot be expressed.
func convertSoftmax(d Descriptor) ([]ncnn.Layer, error) {
	desc, err := as[*SoftmaxDesc]("Softmax", d)
	if err != nil {
		return nil, err
	}
	if desc.Dim != nil && *desc.Dim != 1 {
		return nil, withOp("Softmax", errConfig("dim %d", *desc.Dim))
	}

	layer := ncnn.Layer{Type: ncnn.TypeSoftmax}
	layer.AddInt(0)
	return single(layer), nil
}

// firstArg returns Args[0] of an ActivationDesc.
func firstArg(op string, d Descriptor) (float64, error) {
	desc, err := as[*ActivationDesc](op, d)
	if err != nil {
		return 0, err
	}
	if len(desc.Args) == 0 {
		return 0, withOp(op, errConfig("missing scalar argument"))
	}
	return desc.Args[0], nil
}
