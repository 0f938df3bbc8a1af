package main

import (
	"context"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/tmplstream/internal/command"
)

func main() {
	if err := command.Command.Run(context.Background(), os.Args); err != nil {
		hclog.Default().Error("tmplstream failed", "error", err)
		os.Exit(1)
	}
}
