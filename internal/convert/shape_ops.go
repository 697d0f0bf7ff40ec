package convert

import (
	"github.com/born-ml/torch2ncnn/internal/ncnn"
)

// registerShapeOps adds input and layout operators to the registry.
func (r *Registry) registerShapeOps() {
	r.Register("data", convertData)
	r.Register("Index", convertIndex)
	r.Register("Concat", convertConcat)
}

// convertData emits the C, H, W dims of the input, -233 past the known rank.
func convertData(d Descriptor) ([]ncnn.Layer, error) {
	desc, err := as[*DataDesc]("data", d)
	if err != nil {
		return nil, err
	}

	layer := ncnn.Layer{Type: ncnn.TypeInput}
	for dim := 1; dim <= 3; dim++ {
		size := ncnn.Unspecified
		if dim < len(desc.Shape) {
			size = desc.Shape[dim]
		}
		layer.AddInt(size)
	}
	return single(layer), nil
}

// convertIndex emits [num_slices, seg..., -233]. A non-tuple index yields
// an empty record.
func convertIndex(d Descriptor) ([]ncnn.Layer, error) {
	desc, err := as[*IndexDesc]("Index", d)
	if err != nil {
		return nil, err
	}

	var layer ncnn.Layer
	if !desc.IsTuple() {
		return single(layer), nil
	}

	layer.Type = ncnn.TypeSlice
	layer.AddInt(len(desc.SlicePoints) + 1)
	prev := 0
	for _, p := range desc.SlicePoints {
		if p < prev {
			return nil, shapeErr("Index", "slice points must be non-decreasing", prev, p)
		}
		layer.AddInt(p - prev)
		prev = p
	}
	// The last segment takes whatever remains.
	layer.AddInt(ncnn.Unspecified)
	return single(layer), nil
}

// convertConcat maps channel concat to Concat and any other dim to ConcatV2
// with the batch axis dropped.
func convertConcat(d Descriptor) ([]ncnn.Layer, error) {
	desc, err := as[*ConcatDesc]("Concat", d)
	if err != nil {
		return nil, err
	}

	if desc.Dim == 1 {
		return single(ncnn.Layer{Type: ncnn.TypeConcat}), nil
	}
	layer := ncnn.Layer{Type: ncnn.TypeConcatV2}
	layer.AddInt(max(desc.Dim-1, 0))
	return single(layer), nil
}
