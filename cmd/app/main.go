package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Trong-Tra/Clione/internal/app"
	"github.com/Trong-Tra/Clione/internal/domain"
	"github.com/Trong-Tra/Clione/internal/engine"
	"github.com/Trong-Tra/Clione/internal/event"
	"github.com/Trong-Tra/Clione/internal/execution"
	"github.com/Trong-Tra/Clione/internal/infra/hyperliquid"
	"github.com/Trong-Tra/Clione/internal/risk"
	"github.com/Trong-Tra/Clione/internal/storage"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// Pprof server, localhost only.
	go func() {
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := bootstrap.Config
	runCfg := cfg.RunConfig()

	// Live top-of-book stream; the engine falls back to REST while it warms.
	var bbo *hyperliquid.TopOfBookWorker
	if cfg.API.Hyperliquid.WSURL != "" {
		bbo = hyperliquid.NewTopOfBookWorker(cfg.API.Hyperliquid.WSURL, runCfg.Coin)
		bbo.Start(ctx)
		defer bbo.Stop()
	}
	market := app.NewLiveMarket(bootstrap.Info, bbo)

	// VWAP warmup from the candle cache, venue-backed.
	historical, err := storage.Warmup(ctx, bootstrap.Cache, market, runCfg.Coin, runCfg.CandleInterval, runCfg.VWAPWindow)
	if err != nil {
		slog.Warn("warmup failed, starting with an empty VWAP session", slog.Any("error", err))
	}

	mode := execution.Mode(strings.ToUpper(cfg.Trading.Mode))
	if mode == "" {
		mode = execution.ModePaper
	}
	submitter, err := execution.NewSubmitter(mode, market, func() (execution.Submitter, error) {
		return nil, fmt.Errorf("wallet signing is not wired in this build; run PAPER mode")
	})
	if err != nil {
		slog.Error("failed to build submitter", slog.Any("error", err))
		os.Exit(1)
	}

	monitor := risk.NewMonitor(cfg.RiskLimits())
	eng := engine.New(market, submitter, monitor)

	// Observer: drain the event stream into the log.
	go consumeEvents(eng.Events())

	// Signal-driven cooperative cancellation.
	go func() {
		<-ctx.Done()
		eng.Stop()
	}()

	summary, err := eng.Execute(ctx, runCfg, historical)
	if err != nil {
		slog.Error("run aborted", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("run summary",
		slog.String("status", string(summary.Status)),
		slog.Int("slices", summary.TotalSlices),
		slog.Int("success", summary.SuccessCount),
		slog.Int("failure", summary.FailureCount),
		slog.Float64("executed_qty", summary.ExecutedQuantity),
		slog.Float64("achieved_vwap", summary.AchievedVWAP),
		slog.Float64("avg_slippage_pct", summary.Slippage.Avg),
		slog.Duration("duration", summary.Duration))
	if summary.Status != domain.StatusCompleted {
		os.Exit(1)
	}
}

func consumeEvents(events <-chan event.Event) {
	for ev := range events {
		switch e := ev.(type) {
		case *event.SliceExecutedEvent:
			slog.Info("slice done",
				slog.Int("index", e.Result.Index),
				slog.Float64("size", e.Result.ExecutedSize),
				slog.Float64("px", e.Result.Price),
				slog.Float64("mult", e.Result.AppliedMultiplier))
		case *event.SliceFailedEvent:
			slog.Warn("slice failed",
				slog.Int("index", e.Result.Index),
				slog.String("reason", e.Result.ErrorReason))
		case *event.RiskAlertEvent:
			for _, a := range e.Alerts {
				slog.Warn("risk alert",
					slog.String("code", a.Code),
					slog.String("severity", string(a.Severity)),
					slog.String("message", a.Message))
			}
		case *event.RunHaltedEvent:
			slog.Error("RUN_HALTED", slog.String("reason", e.Reason))
		case *event.RunResumedEvent:
			slog.Info("RUN_RESUMED")
		}
	}
}
