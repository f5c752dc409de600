package main

import (
	"context"
	"log"
	"os"

	"github.com/aquemenida/caliope-ai-studio/internal/buildinfo"
	"github.com/aquemenida/caliope-ai-studio/internal/gateway"
	"github.com/aquemenida/caliope-ai-studio/internal/gateway/config"
	"github.com/aquemenida/caliope-ai-studio/internal/logging"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	logger, err := logging.New(cfg.LogFormat, os.Stdout)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app, err := gateway.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)
}
