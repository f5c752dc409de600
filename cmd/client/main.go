package main

import (
	"context"
	"log"
	"os"

	"github.com/aquemenida/caliope-ai-studio/internal/buildinfo"
	"github.com/aquemenida/caliope-ai-studio/internal/client/cli"
	"github.com/aquemenida/caliope-ai-studio/internal/client/config"
	"github.com/aquemenida/caliope-ai-studio/internal/logging"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	// stdout belongs to the REPL
	logger, err := logging.New(cfg.LogFormat, os.Stderr)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}
