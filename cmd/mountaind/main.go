// cmd/mountaind is the live strategy service. It consumes candles from the
// Redis stream, re-runs the engine over the full session history on each
// candle, serves results to the dashboard over WebSocket and HTTP, journals
// completed runs to SQLite and exposes Prometheus metrics.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mountain-systemv1/config"
	"mountain-systemv1/internal/gateway"
	"mountain-systemv1/internal/logger"
	"mountain-systemv1/internal/markethours"
	"mountain-systemv1/internal/metrics"
	"mountain-systemv1/internal/model"
	"mountain-systemv1/internal/mountain"
	"mountain-systemv1/internal/notification"
	"mountain-systemv1/internal/runner"
	redisstore "mountain-systemv1/internal/store/redis"
	sqlitestore "mountain-systemv1/internal/store/sqlite"
)

func main() {
	cfg := config.Load()
	slogger := logger.Init("mountaind", slog.LevelInfo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics + health
	met := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// Candle archive
	store, err := sqlitestore.NewCandleStore(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[mountaind] candle store open failed: %v", err)
	}
	defer store.Close()

	// Run journal
	journal, err := sqlitestore.NewJournal(cfg.JournalPath)
	if err != nil {
		log.Fatalf("[mountaind] journal open failed: %v", err)
	}
	defer journal.Close()

	// Candle stream
	source, err := redisstore.NewSource(redisstore.SourceConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		Symbol:   cfg.Symbol,
	})
	if err != nil {
		log.Fatalf("[mountaind] redis connect failed: %v", err)
	}
	defer source.Close()

	health.StartLivenessChecker(ctx, source.Client(), store.DB(), 15*time.Second)
	health.SetEngineOK(true)

	// Gateway
	hub := gateway.NewHub()
	hub.OnClientCount(func(n int) { met.WSClients.Set(float64(n)) })

	router := gateway.NewRouter(hub, func(limit int) (any, error) {
		return journal.ListRuns(limit)
	}, time.Now())
	apiSrv := &http.Server{Addr: cfg.APIAddr, Handler: router}
	go func() {
		slogger.Info("api server listening", slog.String("addr", cfg.APIAddr))
		if err := apiSrv.ListenAndServe(); err != http.ErrServerClosed {
			slogger.Error("api server error", slog.Any("err", err))
		}
	}()

	// Notifications
	var notifier notification.Notifier = notification.NewLogNotifier()
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		notifier = notification.NewMultiNotifier(
			notification.NewLogNotifier(),
			notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID),
		)
	}

	// Engine runner
	run := runner.New(cfg.Symbol, mountain.Config{
		SignalRSIThreshold: cfg.SignalRSIThreshold,
		EMAPeriod:          cfg.EMAPeriod,
		RSIPeriod:          cfg.RSIPeriod,
	}, hub, slogger,
		runner.WithJournal(journal),
		runner.WithNotifier(notifier),
		runner.WithMetrics(met),
	)

	// Seed today's history so a mid-session restart replays the same state
	dayStart := sessionStart(time.Now())
	if candles, err := store.ReadRange(cfg.Symbol, dayStart.Unix(), 0); err != nil {
		slogger.Warn("history seed failed", slog.Any("err", err))
	} else if len(candles) > 0 {
		run.Seed(candles)
	}

	// Stream consumption
	candleCh := make(chan model.Candle, 1000)
	go func() {
		health.SetStreamConnected(true)
		source.Run(ctx, candleCh)
		health.SetStreamConnected(false)
		close(candleCh)
	}()

	go func() {
		for c := range candleCh {
			health.SetLastCandleTime(c.TS)
			if err := store.InsertBatch(cfg.Symbol, []model.Candle{c}); err != nil {
				slogger.Error("candle archive failed", slog.Any("err", err))
			}
			run.OnCandle(ctx, c)
		}
	}()

	slogger.Info("mountaind started",
		slog.String("symbol", cfg.Symbol),
		slog.String("redis", cfg.RedisAddr),
		slog.String("market", markethours.StatusString(time.Now())),
	)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slogger.Info("shutting down")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	apiSrv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
}

// sessionStart returns midnight IST of the given instant.
func sessionStart(t time.Time) time.Time {
	ist := t.In(markethours.IST)
	return time.Date(ist.Year(), ist.Month(), ist.Day(), 0, 0, 0, 0, markethours.IST)
}
