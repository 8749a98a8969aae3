package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quantpulse/marketpulse/internal/config"
	"github.com/quantpulse/marketpulse/internal/logger"
	"github.com/quantpulse/marketpulse/internal/models"
	"github.com/quantpulse/marketpulse/internal/notify"
	"github.com/quantpulse/marketpulse/internal/provider"
	"github.com/quantpulse/marketpulse/internal/rules"
	"github.com/quantpulse/marketpulse/internal/state"
	"github.com/quantpulse/marketpulse/internal/storage"
	"github.com/quantpulse/marketpulse/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

// pipeline bundles the three per-cycle components plus the caller-owned
// history window.
type pipeline struct {
	engine   *rules.Engine
	states   *state.Manager
	notifier *notify.Service

	history     []models.Snapshot
	historySize int
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	var store *storage.Storage
	if cfg.Storage.Enabled {
		store, err = storage.New(cfg.Storage.MaxEvents, cfg.Storage.DBPath)
		if err != nil {
			logger.Fatal("Failed to initialize storage: %v", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("Failed to close storage: %v", err)
			}
		}()
	} else {
		logger.Debug("Audit storage disabled")
	}

	var source provider.Provider
	switch cfg.Provider.Mode {
	case "http":
		source = provider.NewHTTP(
			cfg.Provider.SnapshotURL,
			cfg.Provider.Timeout,
			cfg.Provider.MaxRetries,
			cfg.Provider.RetryDelayBase,
		)
		logger.Info("Using HTTP snapshot provider: %s", cfg.Provider.SnapshotURL)
	default:
		source = provider.NewMock(cfg.Provider.MockSeed)
		logger.Info("Using mock snapshot provider")
	}

	pipe := &pipeline{
		engine:      rules.DefaultEngine(),
		states:      state.NewManager(cfg.Pipeline.EventRetention),
		notifier:    notify.NewService(cfg.Pipeline.ThrottleWindow),
		historySize: cfg.Pipeline.HistorySize,
	}

	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	if cfg.Telegram.Enabled && telegramClient != nil {
		telegramClient.ListenForCommands(ctx)
	}

	logger.Info("Starting sentiment pipeline (interval: %v, history: %d, rules: %d)",
		cfg.Provider.PollInterval,
		cfg.Pipeline.HistorySize,
		len(pipe.engine.Rules()),
	)

	ticker := time.NewTicker(cfg.Provider.PollInterval)
	defer ticker.Stop()

	consecutiveFailures := 0

	handleCycleResult := func(err error) {
		if err != nil {
			consecutiveFailures++
			logger.Error("Snapshot cycle failed: %v", err)
			if consecutiveFailures == 1 && telegramClient != nil {
				if sendErr := telegramClient.SendError(err); sendErr != nil {
					logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
				}
			}
		} else {
			if consecutiveFailures > 0 && telegramClient != nil {
				if sendErr := telegramClient.SendRecovery(consecutiveFailures); sendErr != nil {
					logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
				}
			}
			consecutiveFailures = 0
		}
	}

	logger.Debug("Running initial cycle")
	handleCycleResult(runCycle(ctx, source, pipe, store, telegramClient))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return

		case <-ticker.C:
			logger.Debug("Starting scheduled cycle")
			handleCycleResult(runCycle(ctx, source, pipe, store, telegramClient))
		}
	}
}

// runCycle executes one update cycle: fetch a snapshot, detect anomalies
// against the history window, fold them into the market state, and surface
// notifications. Only the fetch can fail; the pipeline itself cannot.
func runCycle(
	ctx context.Context,
	source provider.Provider,
	pipe *pipeline,
	store *storage.Storage,
	telegramClient *telegram.Client,
) error {
	startTime := time.Now()

	snapshot, err := source.LatestSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	logger.Debug("Snapshot: volume=%.0f index=%.2f%% flow=%.0f sector=%s",
		snapshot.Volume, snapshot.IndexChangePct, snapshot.NorthBoundFlow, snapshot.TopSector)

	events := pipe.engine.EvaluateAll(snapshot, pipe.history)
	for _, e := range events {
		logger.Info("Detected [%s] %s", e.Subtype, e.Description)
	}

	newState := pipe.states.UpdateState(events)
	logger.Info("Market state: %s (score: %.1f)", newState.Status, newState.SentimentScore)

	notifications := pipe.notifier.Generate(events, newState)

	if store != nil {
		for i := range events {
			if err := store.AddEvent(&events[i]); err != nil {
				logger.Warn("Failed to record event %s: %v", events[i].ID, err)
			}
		}
		if err := store.SaveState(newState); err != nil {
			logger.Warn("Failed to record state: %v", err)
		}
	}

	for _, n := range notifications {
		logger.Info("Notification [%s] %s: %v", n.Format, n.Title, n.Lines)
		if store != nil {
			if err := store.AddNotification(&n); err != nil {
				logger.Warn("Failed to record notification %s: %v", n.ID, err)
			}
		}
		if telegramClient != nil {
			if err := telegramClient.Send(n); err != nil {
				logger.Error("Failed to send Telegram notification: %v", err)
			}
		}
	}

	// The window holds past snapshots only, so the current one joins it
	// after evaluation; oldest entries are evicted beyond the cap.
	pipe.history = append(pipe.history, snapshot)
	if len(pipe.history) > pipe.historySize {
		pipe.history = pipe.history[len(pipe.history)-pipe.historySize:]
	}

	logger.Debug("Cycle completed in %v", time.Since(startTime))
	return nil
}
