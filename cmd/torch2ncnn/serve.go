package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/born-ml/torch2ncnn/internal/api"
	"github.com/born-ml/torch2ncnn/internal/logger"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		weightsDir  string
		readTimeout time.Duration
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the conversion REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:7767",
				Destination: &addr,
			},
			&cli.StringFlag{
				Name:        "weights-dir",
				Usage:       "directory that weights_file references resolve against",
				Destination: &weightsDir,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyServeConfig(cmd, configFromContext(ctx), &addr, &weightsDir)
			if err := checkWeightsDir(weightsDir); err != nil {
				return err
			}

			server := api.NewServer(api.Config{WeightsDir: weightsDir, Logger: log})
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr, "weights_dir", weightsDir)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}

// checkWeightsDir fails early when a configured weights directory is not a
// readable directory. An empty dir disables weights_file references.
func checkWeightsDir(dir string) error {
	if dir == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("weights dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("weights dir %s is not a directory", dir)
	}
	return nil
}
