package snapshot

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"storybot/internal/store"
)

// DefaultInterval is how often the saver persists the log.
const DefaultInterval = 5 * time.Minute

// Saver persists the log on a fixed interval and once more on Stop.
// The ticker goroutine is fully drained before the final write, so the
// scheduled and the shutdown-triggered persist never overlap.
type Saver struct {
	store    Store
	log      *store.Log
	interval time.Duration
	logger   *zap.Logger

	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewSaver creates a saver. An interval of 0 falls back to DefaultInterval.
func NewSaver(st Store, log *store.Log, interval time.Duration, logger *zap.Logger) *Saver {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Saver{
		store:    st,
		log:      log,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start launches the periodic persist loop.
func (s *Saver) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := Persist(s.store, s.log); err != nil {
					s.logger.Warn("periodic snapshot failed", zap.Error(err))
				} else {
					s.logger.Debug("periodic snapshot written")
				}
			case <-s.done:
				return
			}
		}
	}()
}

// Stop cancels the periodic loop, waits for it to exit, then performs
// the final persist. Safe to call more than once.
func (s *Saver) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		if err := Persist(s.store, s.log); err != nil {
			s.logger.Warn("final snapshot failed", zap.Error(err))
		} else {
			s.logger.Info("final snapshot written")
		}
	})
}
