package convert

import (
	"math"

	"github.com/born-ml/torch2ncnn/internal/ncnn"
	"github.com/born-ml/torch2ncnn/internal/tensor"
)

// Eltwise operation codes.
const (
	eltwiseProd = 0
	eltwiseSum  = 1
)

// registerMathOps adds arithmetic and normalization operators to the registry.
func (r *Registry) registerMathOps() {
	r.Register("Addmm", convertAddmm)
	r.Register("Add", convertAdd)
	r.Register("MulConstant", convertMulConstant)
	r.Register("AddConstant", convertAddConstant)
	r.Register("BatchNorm", convertBatchNorm)
	r.Register("Dropout", convertDropout)
}

// convertAddmm emits InnerProduct [num_output, bias_term, weight_data_size]
// with weights [tag, weight, bias?].
func convertAddmm(d Descriptor) ([]ncnn.Layer, error) {
	desc, err := as[*AddmmDesc]("Addmm", d)
	if err != nil {
		return nil, err
	}
	weight, err := desc.WeightTensor()
	if err != nil {
		return nil, withOp("Addmm", err)
	}
	if len(weight.Shape()) != 2 {
		return nil, shapeErr("Addmm", "weight must be 2-D", weight.Shape()...)
	}

	layer := ncnn.Layer{Type: ncnn.TypeInnerProduct}
	layer.AddInt(weight.Shape()[0])
	bias, hasBias := desc.OptionalBiasTensor()
	layer.AddBool(hasBias)
	layer.AddInt(weight.Len())

	layer.AddWeights(tensor.Scalar0(), weight)
	if hasBias {
		layer.AddWeights(bias)
	}
	return single(layer), nil
}

// convertAdd emits an Eltwise sum.
func convertAdd(d Descriptor) ([]ncnn.Layer, error) {
	desc, err := as[*EltwiseDesc]("Add", d)
	if err != nil {
		return nil, err
	}
	// Coefficients other than 1 would need ncnn's array param 1, which is
	// not emitted yet.
	for _, c := range desc.Coefficients {
		if c != 1 {
			return nil, withOp("Add", errConfig("coefficients %v", desc.Coefficients))
		}
	}

	layer := ncnn.Layer{Type: ncnn.TypeEltwise}
	layer.AddInt(eltwiseSum)
	return single(layer), nil
}

// convertMulConstant emits Power (x*scale+shift)^power with power=1, shift=0.
func convertMulConstant(d Descriptor) ([]ncnn.Layer, error) {
	desc, err := as[*ConstantDesc]("MulConstant", d)
	if err != nil {
		return nil, err
	}

	layer := ncnn.Layer{Type: ncnn.TypePower}
	layer.AddFloat(1)
	layer.AddFloat(desc.Constant)
	layer.AddFloat(0)
	return single(layer), nil
}

// convertAddConstant emits Power with scale=1 and shift=+inf. Autograd does
// not keep the added constant, so the shift must be patched into the .param
// file afterwards; inf makes an unpatched model fail loudly.
func convertAddConstant(d Descriptor) ([]ncnn.Layer, error) {
	if _, err := as[*ConstantDesc]("AddConstant", d); err != nil {
		return nil, err
	}

	layer := ncnn.Layer{Type: ncnn.TypePower}
	layer.AddFloat(1)
	layer.AddFloat(1)
	layer.AddFloat(math.Inf(1))
	return single(layer), nil
}

// convertBatchNorm emits BatchNorm followed by Scale. ncnn has no eps
// param, so eps is folded into the variance blob.
func convertBatchNorm(d Descriptor) ([]ncnn.Layer, error) {
	desc, err := as[*BatchNormDesc]("BatchNorm", d)
	if err != nil {
		return nil, err
	}
	if desc.RunningMean == nil || desc.RunningVar == nil {
		return nil, withOp("BatchNorm", errMissing("running statistics"))
	}
	mean, variance := desc.RunningMean, desc.RunningVar
	if !mean.Shape().Equal(variance.Shape()) {
		return nil, shapeErr("BatchNorm", "running_var shape must match running_mean", variance.Shape()...)
	}

	bn := ncnn.Layer{Type: ncnn.TypeBatchNorm}
	bn.AddInt(mean.Len())
	// ncnn order: slope, mean, var, bias. PyTorch applies slope and bias
	// in the Scale layer below.
	bn.AddWeights(
		tensor.Ones(mean.Shape()),
		mean,
		variance.AddScalar(float32(desc.Eps)),
		tensor.Zeros(mean.Shape()),
	)

	weight, err := desc.WeightTensor()
	if err != nil {
		return nil, withOp("BatchNorm", err)
	}
	scale := ncnn.Layer{Type: ncnn.TypeScale}
	scale.AddInt(weight.Len())
	bias, hasBias := desc.OptionalBiasTensor()
	scale.AddBool(hasBias)
	scale.AddWeights(weight)
	if hasBias {
		scale.AddWeights(bias)
	}

	return []ncnn.Layer{bn, scale}, nil
}

// convertDropout keeps plain Dropout for p=0.5 and emits DropoutV2 with the
// keep scale otherwise.
func convertDropout(d Descriptor) ([]ncnn.Layer, error) {
	desc, err := as[*DropoutDesc]("Dropout", d)
	if err != nil {
		return nil, err
	}

	if math.Abs(desc.P-0.5) < 1e-3 {
		return single(ncnn.Layer{Type: ncnn.TypeDropout}), nil
	}
	layer := ncnn.Layer{Type: ncnn.TypeDropoutV2}
	layer.AddFloat(1.0 - desc.P)
	return single(layer), nil
}
