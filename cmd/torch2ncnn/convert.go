package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/born-ml/torch2ncnn/internal/graph"
	"github.com/born-ml/torch2ncnn/internal/logger"
	"github.com/born-ml/torch2ncnn/internal/ncnn"
	"github.com/born-ml/torch2ncnn/internal/weights"
)

func convertCmd() *cli.Command {
	var (
		inPath      string
		paramPath   string
		binPath     string
		weightsPath string
	)

	return &cli.Command{
		Name:  "convert",
		Usage: "Convert a graph document to .param and .bin files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"in"},
				Usage:       "graph document (.json, .yaml or .yml)",
				Required:    true,
				Destination: &inPath,
			},
			&cli.StringFlag{
				Name:        "param",
				Usage:       "output .param path (default: input with .param extension)",
				Destination: &paramPath,
			},
			&cli.StringFlag{
				Name:        "bin",
				Usage:       "output .bin path (default: input with .bin extension)",
				Destination: &binPath,
			},
			&cli.StringFlag{
				Name:        "weights",
				Usage:       "safetensors file overriding the document's weights_file",
				Destination: &weightsPath,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			base := strings.TrimSuffix(inPath, filepath.Ext(inPath))
			if paramPath == "" {
				paramPath = base + ".param"
			}
			if binPath == "" {
				binPath = base + ".bin"
			}

			patches, err := convertFile(ctx, inPath, weightsPath, paramPath, binPath)
			if err != nil {
				return err
			}
			if configFromContext(ctx).warnOnSentinel() {
				for _, name := range patches {
					log.Warn("layer needs a manual fix before use", "layer", name)
				}
			}
			return nil
		},
	}
}

// convertFile converts the document at inPath and writes both model files.
// It returns the layers that still carry the "inf" placeholder.
func convertFile(ctx context.Context, inPath, weightsPath, paramPath, binPath string) ([]string, error) {
	log := logger.FromContext(ctx)

	doc, err := graph.Load(inPath)
	if err != nil {
		return nil, err
	}
	if weightsPath == "" {
		weightsPath = doc.WeightsPath()
	}

	var opts graph.Options
	if weightsPath != "" {
		reader, err := weights.Open(weightsPath)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = reader.Close()
		}()
		opts.Resolver = reader
		log.Debug("loaded weights", "path", weightsPath, "tensors", len(reader.Names()))
	}

	res, err := graph.Export(ctx, doc, opts)
	if err != nil {
		return nil, err
	}

	if err := writeFile(paramPath, func(w *bufio.Writer) error { return ncnn.WriteParam(w, res.Net) }); err != nil {
		return nil, err
	}
	if err := writeFile(binPath, func(w *bufio.Writer) error { return ncnn.WriteBin(w, res.Net) }); err != nil {
		return nil, err
	}

	log.Info("converted",
		"graph", doc.Name,
		"layers", res.Net.LayerCount(),
		"blobs", res.Net.BlobCount(),
		"weights", res.Net.WeightCount(),
		"param", paramPath,
		"bin", binPath,
	)
	return res.Patches, nil
}

func writeFile(path string, write func(w *bufio.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	w := bufio.NewWriter(f)
	if err := write(w); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return w.Flush()
}
