// Command torch2ncnn converts serialized PyTorch autograd graphs to ncnn
// .param/.bin models.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/born-ml/torch2ncnn/internal/logger"
)

var (
	configFile string
	logLevel   string
	logFormat  string
)

func main() {
	app := &cli.Command{
		Name:  "torch2ncnn",
		Usage: "Convert PyTorch autograd graphs to ncnn models",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "config file (default $XDG_CONFIG_HOME/torch2ncnn/config.yaml)",
				Destination: &configFile,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "debug, info, warn or error",
				Value:       "info",
				Destination: &logLevel,
			},
			&cli.StringFlag{
				Name:        "log-format",
				Usage:       "text or json",
				Value:       "text",
				Destination: &logFormat,
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := LoadConfig(configFile)
			if err != nil {
				return ctx, err
			}
			applyLogConfig(cmd, cfg)
			log := logger.ForFormat(os.Stderr, logFormat, logLevel)
			return withConfig(logger.WithContext(ctx, log), cfg), nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			convertCmd(),
			opsCmd(),
			serveCmd(),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
