package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/carbon-tracker/internal/app"
	"github.com/joseph-ayodele/carbon-tracker/internal/common"
	"github.com/joseph-ayodele/carbon-tracker/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file (defaults to $CONFIG_FILE)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger := common.NewLogger(cfg.Log, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func loadConfig(path string) (*common.Config, error) {
	cfg, err := common.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// run serves until ctx is done. The OCR engine and store are closed before it returns.
func run(ctx context.Context, cfg *common.Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.Server.UploadDir, 0o755); err != nil {
		return fmt.Errorf("create upload dir %s: %w", cfg.Server.UploadDir, err)
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	defer a.Close()

	srv := server.NewServer(cfg.Server, a.Processor, a.Store, logger)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx, cfg.Server.HTTPAddr) })
	if cfg.Server.GRPCAddr != "" {
		hs := server.NewHealthServer(a.Store, 0, logger)
		g.Go(func() error { return hs.Serve(gctx, cfg.Server.GRPCAddr) })
	}
	return g.Wait()
}
