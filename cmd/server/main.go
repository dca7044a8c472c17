package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"tradedesk/internal/api"
	"tradedesk/internal/config"
	"tradedesk/internal/logging"
	"tradedesk/pkg/tradedesk"
)

var getppid = os.Getppid
var sleep = time.Sleep
var exit = os.Exit

func main() {
	var configPath string
	var dataDir string
	var port int
	var host string
	var webDir string

	flag.StringVar(&configPath, "config", "", "Path to a YAML config file (optional)")
	flag.StringVar(&dataDir, "data-dir", "", "Directory for storing database and application data")
	flag.IntVar(&port, "port", 8000, "Port to run the server on")
	flag.StringVar(&host, "host", "127.0.0.1", "Host to bind the server to")
	flag.StringVar(&webDir, "web-dir", "", "Directory for SPA static files (optional)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		exit(1)
		return
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data-dir":
			cfg.DataDir = dataDir
		case "port":
			cfg.Server.Port = port
		case "host":
			cfg.Server.Host = host
		}
	})

	resolvedDataDir, err := cfg.ResolveDataDir()
	if err != nil {
		slog.Error("failed to resolve data directory", "err", err)
		exit(1)
		return
	}
	logger, writer, err := logging.NewLogger(filepath.Join(resolvedDataDir, "logs"), logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		slog.Error("failed to initialize logger", "err", err)
		exit(1)
		return
	}
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Error("failed to close log writer", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg, resolvedDataDir, webDir, logger); err != nil {
		logger.Error("server failed", "err", err)
		exit(1)
	}
}

// run serves the API until ctx is cancelled.
func run(ctx context.Context, cfg config.Config, dataDir, webDir string, logger *slog.Logger) error {
	kv, info, err := openKV(cfg, dataDir, logger)
	if err != nil {
		return err
	}

	store, err := tradedesk.Open(ctx, tradedesk.Options{
		Storage: tradedesk.StorageOptions{
			RemoteURL: cfg.Remote.URL,
			RemoteKey: cfg.Remote.Key,
			KV:        kv,
			Timeout:   cfg.Prices.HTTPTimeout,
		},
		Logger: logger,
		PriceFeed: tradedesk.PriceFeedOptions{
			URL:     cfg.Prices.FeedURL,
			Timeout: cfg.Prices.HTTPTimeout,
		},
		RefreshInterval: cfg.Prices.RefreshInterval,
		RefreshDelay:    cfg.Prices.RefreshDelay,
		Digest: tradedesk.DigestOptions{
			Provider: cfg.AI.Provider,
			APIKey:   cfg.AI.APIKey,
			Model:    cfg.AI.Model,
			BaseURL:  cfg.AI.BaseURL,
		},
	})
	if err != nil {
		if kv != nil {
			_ = kv.Close()
		}
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close store", "err", err)
		}
	}()
	info.Backend = store.BackendName()
	info.DataDir = dataDir
	if cfg.RemoteEnabled() {
		info.RemoteURL = cfg.Remote.URL
	}
	logger.Info("store ready", "backend", info.Backend, "kv_driver", info.KVDriver, "data_dir", dataDir)

	store.Start()
	defer store.Stop()

	if os.Getenv("TRADEDESK_PARENT_WATCH") == "1" {
		go watchParent(logger)
	}

	handler := api.NewRouter(store, api.Options{Logger: logger, Storage: info})
	if resolvedWebDir := resolveWebDir(webDir); resolvedWebDir != "" {
		logger.Info("serving SPA", "web_dir", resolvedWebDir)
		handler = api.WithSPA(handler, resolvedWebDir)
	}
	handler = middleware.Compress(5)(handler)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	logger.Info("server starting", "addr", server.Addr)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen %s: %w", server.Addr, err)
		}
	case <-ctx.Done():
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "err", err)
	}
	return nil
}

// openKV opens the local key-value substrate. No store is opened when the
// remote strategy is configured.
func openKV(cfg config.Config, dataDir string, logger *slog.Logger) (tradedesk.KVStore, api.StorageInfo, error) {
	if cfg.RemoteEnabled() {
		return nil, api.StorageInfo{}, nil
	}
	info := api.StorageInfo{KVDriver: cfg.KV.Driver}
	switch cfg.KV.Driver {
	case config.DriverMemory:
		return tradedesk.NewMemoryKV(), info, nil
	case config.DriverRedis:
		kv := tradedesk.NewRedisKV(&redis.Options{
			Addr:     cfg.KV.RedisAddr,
			Password: cfg.KV.RedisPassword,
			DB:       cfg.KV.RedisDB,
		})
		return kv, info, nil
	default:
		dbPath := filepath.Join(dataDir, config.DBFileName)
		kv, err := tradedesk.OpenSQLiteKV(dbPath, logger)
		if err != nil {
			return nil, info, fmt.Errorf("open sqlite %s: %w", dbPath, err)
		}
		info.DBPath = kv.Path()
		return kv, info, nil
	}
}

func watchParent(logger *slog.Logger) {
	for {
		sleep(1 * time.Second)
		if getppid() == 1 {
			logger.Info("parent process exited; shutting down")
			exit(0)
		}
	}
}

func resolveWebDir(input string) string {
	if input != "" {
		if dirExists(input) {
			return input
		}
		return ""
	}

	candidates := []string{"static", "web/dist", "../static"}
	for _, candidate := range candidates {
		if dirExists(candidate) {
			return candidate
		}
	}
	if exe, err := os.Executable(); err == nil {
		base := filepath.Dir(exe)
		for _, candidate := range candidates {
			path := filepath.Join(base, candidate)
			if dirExists(path) {
				return path
			}
		}
	}
	return ""
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
