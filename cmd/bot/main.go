package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"storybot/internal/anthropic"
	"storybot/internal/config"
	"storybot/internal/history"
	"storybot/internal/narrative"
	"storybot/internal/orchestrator"
	"storybot/internal/snapshot"
	"storybot/internal/speech"
	"storybot/internal/store"
	"storybot/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	snapStore, closeStore, err := newSnapshotStore(cfg)
	if err != nil {
		logger.Fatal("snapshot store init failed", zap.Error(err))
	}
	defer closeStore()

	log := store.NewLog(time.Duration(cfg.RetentionHours)*time.Hour, logger)
	snapshot.Restore(snapStore, log, logger)

	saver := snapshot.NewSaver(snapStore, log, time.Duration(cfg.SaveIntervalMinutes)*time.Minute, logger)
	saver.Start()

	tg := telegram.NewClient(cfg.TelegramAPIBase, cfg.TelegramFileBase,
		time.Duration(cfg.PollTimeout+20)*time.Second)

	gen := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicURL, cfg.AnthropicModel,
		cfg.AnthropicMaxTokens, 120*time.Second)
	compiler := narrative.NewCompiler(log, gen, cfg.TriggerWord, narrative.Limits{
		MaxBatch: cfg.MaxBatch,
		KeepHead: cfg.KeepHead,
		KeepTail: cfg.KeepTail,
	}, logger)

	orch := orchestrator.New(log, newBackfiller(cfg, log, logger), compiler, orchestrator.Thresholds{
		MinTotalBeforeBackfill: cfg.MinTotalBeforeBackfill,
		MinTotalToCompile:      cfg.MinTotalToCompile,
	}, logger)

	b := &bot{
		tg:          tg,
		files:       tg,
		log:         log,
		orch:        orch,
		transcriber: newTranscriber(cfg),
		trigger:     cfg.TriggerWord,
		logger:      logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var offset int64
	if cfg.DropPending {
		bootstrapped, err := bootstrapOffset(tg, cfg.PendingWindow, cfg.PendingMax)
		if err != nil {
			logger.Warn("bootstrap offset failed", zap.Error(err))
		} else {
			offset = bootstrapped
		}
	}

	logger.Info("bot running",
		zap.String("trigger", cfg.TriggerWord),
		zap.String("snapshot_backend", cfg.SnapshotBackend),
		zap.Int("retention_hours", cfg.RetentionHours))

poll:
	for {
		select {
		case <-ctx.Done():
			break poll
		default:
		}

		updates, err := tg.GetUpdates(offset, cfg.PollTimeout)
		if err != nil {
			logger.Warn("getUpdates failed", zap.Error(err))
			sleepOrDone(ctx, time.Duration(cfg.SleepSeconds)*time.Second)
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			if update.Message == nil {
				continue
			}
			b.handle(ctx, update.Message)
		}

		if len(updates) == 0 {
			sleepOrDone(ctx, time.Duration(cfg.SleepSeconds)*time.Second)
		}
	}

	logger.Info("shutting down")
	saver.Stop()
}

func newLogger(debug bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if debug {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zcfg.Build()
}

func newSnapshotStore(cfg config.Config) (snapshot.Store, func(), error) {
	if cfg.SnapshotBackend == "sqlite" {
		st, err := snapshot.NewSQLiteStore(cfg.SnapshotPath)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { st.Close() }, nil
	}
	st, err := snapshot.NewFileStore(cfg.SnapshotPath)
	if err != nil {
		return nil, nil, err
	}
	return st, func() {}, nil
}

func newBackfiller(cfg config.Config, log *store.Log, logger *zap.Logger) orchestrator.Backfiller {
	if cfg.HistoryBaseURL == "" {
		logger.Info("history sidecar not configured, backfill disabled")
		return disabledBackfill{}
	}
	client := history.NewClient(cfg.HistoryBaseURL, 30*time.Second)
	return history.NewBridge(client, log, cfg.HistoryPageSize, logger)
}

// disabledBackfill stands in when no history sidecar is configured.
type disabledBackfill struct{}

func (disabledBackfill) Backfill(ctx context.Context, chatID int64) (int, error) {
	return 0, history.ErrNoHistory
}

func newTranscriber(cfg config.Config) speech.Transcriber {
	if cfg.SpeechAPIKey == "" {
		return nil
	}
	return speech.NewGoogleClient(cfg.SpeechAPIKey, cfg.SpeechURL, cfg.SpeechLanguage, 60*time.Second)
}

// bootstrapOffset skips updates that piled up while the bot was down,
// keeping only recent ones within the pending window, capped at max.
func bootstrapOffset(tg *telegram.Client, pendingWindowSeconds int64, pendingMax int) (int64, error) {
	updates, err := tg.GetUpdates(0, 0)
	if err != nil {
		return 0, err
	}
	if len(updates) == 0 {
		return 0, nil
	}

	cutoff := time.Now().Unix() - pendingWindowSeconds

	var inWindow []telegram.Update
	for _, u := range updates {
		if u.Message != nil && u.Message.Date >= cutoff {
			inWindow = append(inWindow, u)
		}
	}

	if len(inWindow) == 0 {
		return updates[len(updates)-1].UpdateID + 1, nil
	}
	if len(inWindow) > pendingMax {
		inWindow = inWindow[len(inWindow)-pendingMax:]
	}
	return inWindow[0].UpdateID, nil
}

func sleepOrDone(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
