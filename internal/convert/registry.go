package convert

import (
	"sort"
	"sync"

	"github.com/born-ml/torch2ncnn/internal/ncnn"
)

// Converter turns one source layer into ncnn layer records.
type Converter func(desc Descriptor) ([]ncnn.Layer, error)

// Registry maps autograd type names to converters.
type Registry struct {
	converters map[string]Converter
}

// NewRegistry creates a registry with every supported type name.
func NewRegistry() *Registry {
	r := &Registry{
		converters: make(map[string]Converter),
	}

	r.registerShapeOps()
	r.registerMathOps()
	r.registerActivations()
	r.registerSpatialOps()

	return r
}

// Register adds or replaces the converter for a type name.
func (r *Registry) Register(typeName string, conv Converter) {
	r.converters[typeName] = conv
}

// Get returns the converter for a type name.
func (r *Registry) Get(typeName string) (Converter, bool) {
	c, ok := r.converters[typeName]
	return c, ok
}

// Convert runs the converter registered for typeName on desc.
func (r *Registry) Convert(typeName string, desc Descriptor) ([]ncnn.Layer, error) {
	conv, ok := r.converters[typeName]
	if !ok {
		return nil, &UnsupportedOperatorError{Type: typeName, Known: r.SupportedOps()}
	}
	return conv(desc)
}

// SupportedOps returns the registered type names, sorted.
func (r *Registry) SupportedOps() []string {
	ops := make([]string, 0, len(r.converters))
	for op := range r.converters {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

var defaultRegistry = sync.OnceValue(NewRegistry)

// Default returns a shared registry built by NewRegistry. It must not be
// modified with Register.
func Default() *Registry {
	return defaultRegistry()
}

// Convert converts desc with the default registry.
func Convert(typeName string, desc Descriptor) ([]ncnn.Layer, error) {
	return Default().Convert(typeName, desc)
}

// single wraps one record as a converter result.
func single(l ncnn.Layer) []ncnn.Layer {
	return []ncnn.Layer{l}
}
