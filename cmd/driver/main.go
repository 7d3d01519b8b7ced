// Batch-auction settlement driver — the off-chain process that reads a
// batch-auction exchange contract's orderbook, computes a uniform
// clearing-price solution, and submits it on-chain.
//
// Architecture:
//
//	main.go              — entry point: loads config, wires every collaborator, serves the observability surface
//	internal/driver        — Tick(batch): snapshot → filter → match → submit
//	internal/chain          — go-ethereum ContractReader/Clock/Submitter (§6)
//	internal/reader          — paginated view-call reader (C2)
//	internal/updater         — live event-sourced reader + readiness flag (C4)
//	internal/orderbook        — pure event-sourced state engine (C3)
//	internal/tscache          — block timestamp cache (C5)
//	internal/matcher          — naive two-order uniform-price solver (C6)
//	internal/shadow           — C2-vs-C4 cross-check reader (C7)
//	internal/filter           — orderbook allow/deny filter (C8)
//	internal/api              — read-only observability HTTP/WS surface
//
// The driver does not decide when a batch closes — that is an external
// scheduler's job (§6 Non-goals). POST /tick?batch=N is the hook that
// scheduler calls once per batch.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"github.com/stablex/driver/internal/api"
	"github.com/stablex/driver/internal/chain"
	"github.com/stablex/driver/internal/config"
	"github.com/stablex/driver/internal/driver"
	"github.com/stablex/driver/internal/orderbook"
	"github.com/stablex/driver/internal/reader"
	"github.com/stablex/driver/internal/shadow"
	"github.com/stablex/driver/internal/tscache"
	"github.com/stablex/driver/internal/updater"
	"github.com/stablex/driver/pkg/types"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("DRIVER_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := chain.Dial(ctx, chain.Config{
		NodeURL:  cfg.Chain.NodeURL,
		Contract: common.HexToAddress(cfg.Chain.ContractAddress),
	}, logger)
	if err != nil {
		logger.Error("failed to dial chain", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	submitter, err := chain.NewSubmitter(client, cfg.Chain.PrivateKey, cfg.Chain.NetworkID)
	if err != nil {
		logger.Error("failed to build submitter", "error", err)
		os.Exit(1)
	}

	flt, err := cfg.Filter.Parse()
	if err != nil {
		logger.Error("invalid orderbook filter", "error", err)
		os.Exit(1)
	}

	ob := orderbook.New()
	cache := tscache.New(client)
	upd := updater.New(ob, client, cache, logger)
	pageReader := reader.New(client, cfg.Reader.AuctionDataPageSize)
	snapshot := shadow.New(upd, pageReader, logger)

	drv := &driver.Driver{
		Snapshot:  snapshot,
		Submitter: submitter,
		Filter:    flt,
		Logger:    logger.With("component", "driver"),
		DryRun:    cfg.DryRun,
	}

	var apiServer *api.Server
	if cfg.Dashboard.Enabled {
		apiServer = api.NewServer(cfg.Dashboard, upd, drv, logger)
		snapshot.OnDivergence(func(batch types.BatchIndex, diff string) {
			apiServer.Hub().BroadcastEvent(api.NewDivergenceEvent(batch, diff))
		})
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error("observability server failed", "error", err)
			}
		}()
		logger.Info("observability server started", "url", fmt.Sprintf("http://localhost:%d", cfg.Dashboard.Port))
	}

	updaterErrCh := make(chan error, 1)
	go func() {
		updaterErrCh <- upd.Run(ctx)
	}()

	if cfg.DryRun {
		logger.Warn("DRY-RUN MODE — solutions are computed but not submitted")
	}

	logger.Info("driver started",
		"node_url", cfg.Chain.NodeURL,
		"contract", cfg.Chain.ContractAddress,
		"network_id", cfg.Chain.NetworkID,
		"dry_run", cfg.DryRun,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-updaterErrCh:
		logger.Error("updater stopped unexpectedly", "error", err)
	}

	cancel()

	if apiServer != nil {
		if err := apiServer.Stop(); err != nil {
			logger.Error("failed to stop observability server", "error", err)
		}
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
