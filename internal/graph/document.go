// Package graph reads a serialized, topologically ordered PyTorch autograd
// graph and exports it as an ncnn network.
//
// A document lists nodes in execution order. Each node names its autograd
// type, its input blobs, scalar attributes and the tensors its converter
// needs. Tensors are either inline or references into a weights file.
package graph

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Format identifies a document encoding.
type Format string

// Supported document encodings.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Document errors.
var (
	ErrInvalidDocument = errors.New("invalid graph document")
	ErrUnknownFormat   = errors.New("unknown document format")
)

// Document is a serialized autograd graph.
type Document struct {
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	WeightsFile string `json:"weights_file,omitempty" yaml:"weights_file,omitempty"`
	Nodes       []Node `json:"nodes" yaml:"nodes"`

	// Dir is the directory the document was loaded from; WeightsFile is
	// resolved against it.
	Dir string `json:"-" yaml:"-"`
}

// Node is one autograd function in the graph.
type Node struct {
	Name    string               `json:"name" yaml:"name"`
	Type    string               `json:"type" yaml:"type"`
	Inputs  []string             `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs []string             `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Attrs   map[string]any       `json:"attrs,omitempty" yaml:"attrs,omitempty"`
	Tensors map[string]TensorRef `json:"tensors,omitempty" yaml:"tensors,omitempty"`
}

// Tops returns the blobs the node produces: Outputs, or its own name.
func (n *Node) Tops() []string {
	if len(n.Outputs) > 0 {
		return n.Outputs
	}
	return []string{n.Name}
}

// TensorRef is an inline tensor or a reference into the weights file.
type TensorRef struct {
	Ref   string    `json:"ref,omitempty" yaml:"ref,omitempty"`
	Shape []int     `json:"shape,omitempty" yaml:"shape,omitempty"`
	Data  []float32 `json:"data,omitempty" yaml:"data,omitempty"`
}

// FormatFromPath picks the encoding from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// Decode reads a document in the given format and validates it.
func Decode(r io.Reader, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode json: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Parse decodes a document held in memory.
func Parse(data []byte, format Format) (*Document, error) {
	return Decode(bytes.NewReader(data), format)
}

// Load reads a document from disk, picking the format from the extension.
func Load(path string) (*Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // G304: path is supplied by the user on purpose
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	doc, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Dir = filepath.Dir(path)
	return doc, nil
}

// WeightsPath returns the weights file resolved against the document
// directory, or "" when the document has none.
func (d *Document) WeightsPath() string {
	if d.WeightsFile == "" {
		return ""
	}
	if filepath.IsAbs(d.WeightsFile) || d.Dir == "" {
		return d.WeightsFile
	}
	return filepath.Join(d.Dir, d.WeightsFile)
}

// Validate checks that node names are unique and that every input refers to
// a blob produced by an earlier node, so document order is a valid
// topological order.
func (d *Document) Validate() error {
	if len(d.Nodes) == 0 {
		return fmt.Errorf("%w: no nodes", ErrInvalidDocument)
	}

	names := make(map[string]struct{}, len(d.Nodes))
	blobs := make(map[string]struct{}, len(d.Nodes))
	for i := range d.Nodes {
		n := &d.Nodes[i]
		if n.Name == "" {
			return fmt.Errorf("%w: node %d has no name", ErrInvalidDocument, i)
		}
		if n.Type == "" {
			return fmt.Errorf("%w: node %q has no type", ErrInvalidDocument, n.Name)
		}
		if _, dup := names[n.Name]; dup {
			return fmt.Errorf("%w: duplicate node name %q", ErrInvalidDocument, n.Name)
		}
		names[n.Name] = struct{}{}

		for _, in := range n.Inputs {
			if _, ok := blobs[in]; !ok {
				return fmt.Errorf("%w: node %q reads %q before it is produced", ErrInvalidDocument, n.Name, in)
			}
		}
		for _, top := range n.Tops() {
			if _, dup := blobs[top]; dup {
				return fmt.Errorf("%w: blob %q produced twice", ErrInvalidDocument, top)
			}
			blobs[top] = struct{}{}
		}
	}
	return nil
}
