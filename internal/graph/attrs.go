package graph

import (
	"fmt"
	"math"

	"github.com/born-ml/torch2ncnn/internal/convert"
)

// Attribute values arrive as float64 (JSON) or int/float64 (YAML); lists as
// []any. The helpers below normalize them.

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	default:
		return 0, false
	}
}

func toInt(v any) (int, bool) {
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func attrError(n *Node, name, want string, got any) error {
	return fmt.Errorf("%w: node %q: attribute %q must be %s, got %v", ErrInvalidDocument, n.Name, name, want, got)
}

// attrFloat returns a float attribute or def when absent.
func (n *Node) attrFloat(name string, def float64) (float64, error) {
	v, ok := n.Attrs[name]
	if !ok || v == nil {
		return def, nil
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, attrError(n, name, "a number", v)
	}
	return f, nil
}

// attrInt returns an integer attribute or def when absent.
func (n *Node) attrInt(name string, def int) (int, error) {
	v, ok := n.Attrs[name]
	if !ok || v == nil {
		return def, nil
	}
	i, ok := toInt(v)
	if !ok {
		return 0, attrError(n, name, "an integer", v)
	}
	return i, nil
}

// attrOptInt returns nil when the attribute is absent.
func (n *Node) attrOptInt(name string) (*int, error) {
	if v, ok := n.Attrs[name]; !ok || v == nil {
		return nil, nil
	}
	i, err := n.attrInt(name, 0)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// attrBool returns a boolean attribute or def when absent.
func (n *Node) attrBool(name string, def bool) (bool, error) {
	v, ok := n.Attrs[name]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, attrError(n, name, "a boolean", v)
	}
	return b, nil
}

// attrFloats returns a list attribute of numbers.
func (n *Node) attrFloats(name string) ([]float64, error) {
	v, ok := n.Attrs[name]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		if f, isNum := toFloat(v); isNum {
			return []float64{f}, nil
		}
		return nil, attrError(n, name, "a list of numbers", v)
	}
	out := make([]float64, len(list))
	for i, e := range list {
		f, ok := toFloat(e)
		if !ok {
			return nil, attrError(n, name, "a list of numbers", v)
		}
		out[i] = f
	}
	return out, nil
}

// attrInts returns a list attribute of integers.
func (n *Node) attrInts(name string) ([]int, error) {
	fs, err := n.attrFloats(name)
	if err != nil {
		return nil, err
	}
	if fs == nil {
		return nil, nil
	}
	out := make([]int, len(fs))
	for i, f := range fs {
		if f != math.Trunc(f) {
			return nil, attrError(n, name, "a list of integers", n.Attrs[name])
		}
		out[i] = int(f)
	}
	return out, nil
}

// attrPair accepts a scalar (used for both dimensions) or a two-element list.
func (n *Node) attrPair(name string, def convert.Pair) (convert.Pair, error) {
	if v, ok := n.Attrs[name]; !ok || v == nil {
		return def, nil
	}
	vals, err := n.attrInts(name)
	if err != nil {
		return convert.Pair{}, err
	}
	switch len(vals) {
	case 1:
		return convert.Square(vals[0]), nil
	case 2:
		return convert.Pair{vals[0], vals[1]}, nil
	default:
		return convert.Pair{}, attrError(n, name, "an integer or a pair", n.Attrs[name])
	}
}

// attrIndex decodes an indexing expression. A list is a per-axis tuple whose
// elements are integers, null (full slice) or {start, stop, step} maps.
// Anything else is a non-tuple index and yields nil.
func (n *Node) attrIndex(name string) ([]convert.AxisIndex, error) {
	list, ok := n.Attrs[name].([]any)
	if !ok {
		return nil, nil
	}

	out := make([]convert.AxisIndex, len(list))
	for i, e := range list {
		switch x := e.(type) {
		case nil:
		case map[string]any:
			var err error
			if out[i].Start, err = optInt(n, name, x["start"]); err != nil {
				return nil, err
			}
			if out[i].Stop, err = optInt(n, name, x["stop"]); err != nil {
				return nil, err
			}
			if out[i].Step, err = optInt(n, name, x["step"]); err != nil {
				return nil, err
			}
		default:
			v, ok := toInt(x)
			if !ok {
				return nil, attrError(n, name, "a tuple of integers, nulls or slices", e)
			}
			out[i] = convert.AxisIndex{Scalar: true, Start: &v}
		}
	}
	return out, nil
}

func optInt(n *Node, name string, v any) (*int, error) {
	if v == nil {
		return nil, nil
	}
	i, ok := toInt(v)
	if !ok {
		return nil, attrError(n, name, "slice bounds as integers", v)
	}
	return &i, nil
}
