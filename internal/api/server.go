// Package api serves the converter over HTTP.
package api

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/born-ml/torch2ncnn/internal/convert"
	"github.com/born-ml/torch2ncnn/internal/graph"
	"github.com/born-ml/torch2ncnn/internal/logger"
	"github.com/born-ml/torch2ncnn/internal/ncnn"
	"github.com/born-ml/torch2ncnn/internal/weights"
)

// maxBodySize bounds request bodies; inline weights make graphs large.
const maxBodySize = 256 << 20

// Config configures a Server.
type Config struct {
	// Registry converts layers; nil uses convert.Default().
	Registry *convert.Registry
	// WeightsDir is where weights_file references are resolved. Documents
	// that name a weights file are rejected when it is empty.
	WeightsDir string
	Logger     logger.Logger
}

// Server exposes the converter over HTTP.
type Server struct {
	registry   *convert.Registry
	weightsDir string
	log        logger.Logger
}

// NewServer creates a Server.
func NewServer(cfg Config) *Server {
	reg := cfg.Registry
	if reg == nil {
		reg = convert.Default()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	return &Server{registry: reg, weightsDir: cfg.WeightsDir, log: log}
}

// Register mounts the routes on e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/v1/operators", s.handleOperators)
	e.POST("/v1/convert", s.handleConvert)
	e.POST("/v1/convert/layer", s.handleConvertLayer)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOperators(c *echo.Context) error {
	return c.JSON(http.StatusOK, OperatorsResponse{
		Operators:  s.registry.SupportedOps(),
		Vocabulary: ncnn.Vocabulary,
	})
}

func (s *Server) handleConvert(c *echo.Context) error {
	id := uuid.NewString()
	log := s.log.With("request_id", id)

	doc, err := graph.Decode(io.LimitReader(c.Request().Body, maxBodySize), graph.FormatJSON)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}

	opts := graph.Options{Registry: s.registry}
	if doc.WeightsFile != "" {
		reader, err := s.openWeights(doc.WeightsFile)
		if err != nil {
			return writeBadRequest(c, err.Error())
		}
		defer func() {
			_ = reader.Close()
		}()
		opts.Resolver = reader
	}

	ctx := logger.WithContext(c.Request().Context(), log)
	res, err := graph.Export(ctx, doc, opts)
	if err != nil {
		log.Warn("conversion failed", "error", err)
		return writeConversionError(c, err)
	}

	var param, bin bytes.Buffer
	if err := ncnn.WriteParam(&param, res.Net); err != nil {
		return writeConversionError(c, err)
	}
	if err := ncnn.WriteBin(&bin, res.Net); err != nil {
		return writeConversionError(c, err)
	}

	layers := make([]LayerDTO, len(res.Net.Nodes))
	for i := range res.Net.Nodes {
		n := &res.Net.Nodes[i]
		layers[i] = layerDTO(&n.Layer)
		layers[i].Name = n.Name
		layers[i].Bottoms = n.Bottoms
		layers[i].Tops = n.Tops
	}

	return c.JSON(http.StatusOK, ConvertResponse{
		ID:        id,
		Name:      doc.Name,
		Param:     param.String(),
		BinBase64: base64.StdEncoding.EncodeToString(bin.Bytes()),
		Layers:    layers,
		Patches:   res.Patches,
	})
}

func (s *Server) handleConvertLayer(c *echo.Context) error {
	id := uuid.NewString()

	var req LayerRequest
	if err := json.NewDecoder(io.LimitReader(c.Request().Body, maxBodySize)).Decode(&req); err != nil {
		return writeBadRequest(c, fmt.Sprintf("failed to decode request: %v", err))
	}
	if req.Type == "" {
		return writeBadRequest(c, "type is required")
	}

	if _, ok := s.registry.Get(req.Type); !ok {
		_, err := s.registry.Convert(req.Type, nil)
		return writeConversionError(c, err)
	}
	node := graph.Node{Name: "layer", Type: req.Type, Attrs: req.Attrs, Tensors: req.Tensors}
	desc, err := node.Descriptor(nil)
	if err != nil {
		return writeConversionError(c, err)
	}
	records, err := s.registry.Convert(req.Type, desc)
	if err != nil {
		return writeConversionError(c, err)
	}

	layers := make([]LayerDTO, len(records))
	for i := range records {
		layers[i] = layerDTO(&records[i])
	}
	return c.JSON(http.StatusOK, LayerResponse{ID: id, Layers: layers})
}

// openWeights opens a weights file inside the configured directory.
func (s *Server) openWeights(name string) (*weights.Reader, error) {
	if s.weightsDir == "" {
		return nil, fmt.Errorf("weights_file %q given but the server has no weights directory", name)
	}
	if !filepath.IsLocal(name) {
		return nil, fmt.Errorf("weights_file %q must be a relative path inside the weights directory", name)
	}
	return weights.Open(filepath.Join(s.weightsDir, name))
}

func layerDTO(l *ncnn.Layer) LayerDTO {
	dto := LayerDTO{Type: l.Type, Params: l.Params}
	if dto.Params == nil {
		dto.Params = []string{}
	}
	for _, w := range l.Weights {
		dto.Weights = append(dto.Weights, WeightInfo{Shape: []int(w.Shape()), Count: w.Len()})
	}
	return dto
}
