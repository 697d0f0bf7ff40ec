package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/born-ml/torch2ncnn/internal/convert"
	"github.com/born-ml/torch2ncnn/internal/logger"
	"github.com/born-ml/torch2ncnn/internal/ncnn"
)

// Options configures Export.
type Options struct {
	// Registry converts nodes; nil uses convert.Default().
	Registry *convert.Registry
	// Resolver supplies tensors referenced by name; may be nil when every
	// tensor is inline.
	Resolver TensorResolver
}

// Result is an exported network plus the layers that need manual fixes.
//
// Net contains no Split layers: a blob read by several layers is listed as
// a bottom of each of them. Load it with ncnn's lightmode off, or insert
// Split layers before loading, since lightmode frees a blob after its first
// consumer runs.
type Result struct {
	Net *ncnn.Net
	// Patches lists layer names whose params hold the "inf" placeholder
	// that must be replaced before the model is usable.
	Patches []string
}

// Export converts every node of doc in order and wires the resulting layers
// into an ncnn network.
//
// Nodes that convert to several layers get the node name on the first layer
// and "<node>_<type>" on the rest, chained through intermediate blobs.
// Nodes that convert to an empty record are dropped and their output blob
// is aliased to their first input.
//
// Export does not insert Split layers for blobs with several consumers; see
// Result.
func Export(ctx context.Context, doc *Document, opts Options) (*Result, error) {
	reg := opts.Registry
	if reg == nil {
		reg = convert.Default()
	}
	log := logger.FromContext(ctx)

	res := &Result{Net: &ncnn.Net{}}
	alias := make(map[string]string)
	resolve := func(blob string) string {
		if a, ok := alias[blob]; ok {
			return a
		}
		return blob
	}

	for i := range doc.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		node := &doc.Nodes[i]

		if _, ok := reg.Get(node.Type); !ok {
			_, err := reg.Convert(node.Type, nil)
			return nil, fmt.Errorf("node %q: %w", node.Name, err)
		}
		desc, err := node.Descriptor(opts.Resolver)
		if err != nil {
			return nil, err
		}
		layers, err := reg.Convert(node.Type, desc)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", node.Name, err)
		}

		bottoms := make([]string, len(node.Inputs))
		for j, in := range node.Inputs {
			bottoms[j] = resolve(in)
		}

		if len(layers) == 1 && layers[0].Empty() {
			if len(bottoms) == 0 {
				return nil, fmt.Errorf("node %q: empty record with no input to pass through", node.Name)
			}
			for _, top := range node.Tops() {
				alias[top] = bottoms[0]
			}
			log.Debug("dropped empty layer", "node", node.Name, "type", node.Type)
			continue
		}

		tops := node.Tops()
		for j, layer := range layers {
			name := node.Name
			if j > 0 {
				name = node.Name + "_" + strings.ToLower(layer.Type)
			}
			out := tops
			if j < len(layers)-1 {
				out = []string{node.Name + "_" + strings.ToLower(layer.Type)}
			}

			res.Net.Add(ncnn.Node{Layer: layer, Name: name, Bottoms: bottoms, Tops: out})
			if needsPatch(&layer) {
				res.Patches = append(res.Patches, name)
				log.Warn("layer needs a manual param patch", "layer", name, "type", layer.Type, "params", layer.Params)
			}
			bottoms = out
		}
	}

	log.Info("exported graph",
		"name", doc.Name,
		"layers", res.Net.LayerCount(),
		"blobs", res.Net.BlobCount(),
		"weights", res.Net.WeightCount(),
	)
	return res, nil
}

func needsPatch(l *ncnn.Layer) bool {
	for _, p := range l.Params {
		if p == "inf" || p == "-inf" || p == "nan" {
			return true
		}
	}
	return false
}
