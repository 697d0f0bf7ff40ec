package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/born-ml/torch2ncnn/internal/convert"
)

func opsCmd() *cli.Command {
	return &cli.Command{
		Name:  "ops",
		Usage: "List the autograd types that can be converted",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			for _, op := range convert.Default().SupportedOps() {
				fmt.Println(op)
			}
			return nil
		},
	}
}
