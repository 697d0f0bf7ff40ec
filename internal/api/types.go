package api

import "github.com/born-ml/torch2ncnn/internal/graph"

// LayerRequest converts a single node outside of a graph.
type LayerRequest struct {
	Type    string                     `json:"type"`
	Attrs   map[string]any             `json:"attrs,omitempty"`
	Tensors map[string]graph.TensorRef `json:"tensors,omitempty"`
}

// WeightInfo summarizes one weight blob.
type WeightInfo struct {
	Shape []int `json:"shape"`
	Count int   `json:"count"`
}

// LayerDTO is one converted ncnn layer.
type LayerDTO struct {
	Name    string       `json:"name,omitempty"`
	Type    string       `json:"type"`
	Params  []string     `json:"params"`
	Bottoms []string     `json:"bottoms,omitempty"`
	Tops    []string     `json:"tops,omitempty"`
	Weights []WeightInfo `json:"weights,omitempty"`
}

// LayerResponse is the result of POST /v1/convert/layer.
type LayerResponse struct {
	ID     string     `json:"id"`
	Layers []LayerDTO `json:"layers"`
}

// ConvertResponse is the result of POST /v1/convert.
type ConvertResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name,omitempty"`
	Param     string     `json:"param"`
	BinBase64 string     `json:"bin_base64"`
	Layers    []LayerDTO `json:"layers"`
	Patches   []string   `json:"patches,omitempty"`
}

// OperatorsResponse is the result of GET /v1/operators.
type OperatorsResponse struct {
	Operators  []string `json:"operators"`
	Vocabulary []string `json:"vocabulary"`
}
