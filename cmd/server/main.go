package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/busauth/internal/server"
	"github.com/dmitrijs2005/busauth/internal/server/config"
)

func main() {

	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger := server.NewLogger(cfg)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err)
		log.Fatalf("%v", err)
	}

	app.Run(ctx)

}
