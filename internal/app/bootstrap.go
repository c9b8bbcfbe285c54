// Package app wires configuration, storage and the venue gateway into a
// ready-to-run system.
package app

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Trong-Tra/Clione/internal/infra"
	"github.com/Trong-Tra/Clione/internal/infra/hyperliquid"
	"github.com/Trong-Tra/Clione/internal/storage"
)

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config *infra.Config
	Cache  *storage.CandleCache
	Info   *hyperliquid.InfoClient

	unlock func()
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads configuration, sets up logging, the workspace and the
// venue clients.
func (b *Bootstrap) Initialize() error {
	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err
	}
	b.Config = cfg

	slog.SetDefault(infra.NewLogger(cfg))
	slog.Info("bootstrapping",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version))

	// Data isolation per mode: _workspace/data/{paper|real}/candles.db
	mode := strings.ToLower(cfg.Trading.Mode)
	if mode == "" {
		mode = "paper"
	}

	workDir := infra.GetWorkspaceDir()
	dataDir := filepath.Join(workDir, "data", mode)
	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	// One process per workspace; two engines sharing a cache DB corrupt it.
	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	cachePath := cfg.Cache.Path
	if cachePath == "" {
		cachePath = filepath.Join(dataDir, "candles.db")
	}
	cache, err := storage.NewCandleCache(cachePath)
	if err != nil {
		return fmt.Errorf("failed to open candle cache: %w", err)
	}
	b.Cache = cache
	slog.Info("candle cache ready (WAL-mode)", slog.String("path", cachePath))

	b.Info = hyperliquid.NewInfoClient(cfg.API.Hyperliquid.RestURL)
	return nil
}

// Close releases the workspace lock and storage handles.
func (b *Bootstrap) Close() {
	if b.Cache != nil {
		b.Cache.Close()
	}
	if b.unlock != nil {
		b.unlock()
	}
}
