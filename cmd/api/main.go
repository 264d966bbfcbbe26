package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jlpt-listening/config"
	"jlpt-listening/internal/api/healthcheck"
	historyapi "jlpt-listening/internal/api/history"
	ingestapi "jlpt-listening/internal/api/ingest"
	questionapi "jlpt-listening/internal/api/question"
	retrieverapi "jlpt-listening/internal/api/retriever"
	"jlpt-listening/internal/bootstrap"
	"jlpt-listening/internal/middleware"
	"jlpt-listening/pkg/logger"

	"github.com/gofiber/fiber/v3"
)

func main() {
	cfgPath := flag.String("config", "config.yml", "path to the YAML config file")
	flag.Parse()

	if err := config.Init(*cfgPath); err != nil {
		logger.Fatalf("%v", err)
	}
	logger.Init(config.Cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	deps, err := bootstrap.Open(ctx)
	cancel()
	if err != nil {
		logger.Error(err, "%v: startup failed", config.ModuleServer)
		os.Exit(1)
	}
	defer deps.Close()

	app := fiber.New(fiber.Config{
		AppName:     config.Cfg.Server.AppName,
		BodyLimit:   config.Cfg.Server.BodyLimit,
		Concurrency: config.Cfg.Server.Concurrency,
	})
	middleware.Register(app, config.Cfg.Server.Concurrency)

	// routes
	healthcheck.RegisterRoutes(app, healthcheck.NewHandler(deps.DB))
	questionapi.RegisterRoutes(app, questionapi.NewHandler(deps.Generator))
	historyapi.RegisterRoutes(app, historyapi.NewHandler(deps.History))
	retrieverapi.RegisterRoutes(app, retrieverapi.NewHandler(deps.Vectors))
	var uploads ingestapi.Uploader
	if deps.S3 != nil {
		uploads = deps.S3
	}
	ingestapi.RegisterRoutes(app, ingestapi.NewHandler(deps.Ingest, uploads))

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info("%v: shutting down", config.ModuleServer)
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error(err, "%v: shutdown error", config.ModuleServer)
		}
	}()

	addr := fmt.Sprintf(":%d", config.Cfg.Server.Port)
	if err := app.Listen(addr); err != nil {
		logger.Error(err, "%v: server error", config.ModuleServer)
	}
}
