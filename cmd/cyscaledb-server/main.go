package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lKGreat/cyscaledb/internal/auth"
	"github.com/lKGreat/cyscaledb/internal/config"
	"github.com/lKGreat/cyscaledb/internal/dispatcher"
	"github.com/lKGreat/cyscaledb/internal/engine"
	"github.com/lKGreat/cyscaledb/internal/engine/memengine"
	"github.com/lKGreat/cyscaledb/internal/logging"
	"github.com/lKGreat/cyscaledb/internal/server"
)

func main() {
	var configPath string
	var logLevel string
	flag.StringVar(&configPath, "configPath", "", "path to the server's .ini configuration file")
	flag.StringVar(&logLevel, "logLevel", "info", "debug, info, warn, or error")
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cyscaledb-server: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	logger := logging.New(logging.Config{Level: logLevel})
	logger.Info("cyscaledb-server starting, listening on %s:%d", cfg.BindAddress, cfg.Port)

	eng := memengine.New()
	users := auth.NewStaticUserManager()
	users.AddUser("root", "localhost", "")
	users.AddUser("root", "127.0.0.1", "")

	d := dispatcher.New(eng, func() engine.Executor { return eng }, users, logger, cfg.ServerVersion)
	srv := server.New(cfg, d, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Serve(ctx); err != nil {
		logger.Error("cyscaledb-server: %v", err)
		os.Exit(1)
	}
	logger.Info("cyscaledb-server stopped")
}
