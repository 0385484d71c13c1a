package challenges

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Finalizer calls Finalize on a fixed interval until stopped.
type Finalizer struct {
	svc      *Service
	interval time.Duration
	logger   *slog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewFinalizer(svc *Service, interval time.Duration, logger *slog.Logger) *Finalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finalizer{
		svc:      svc,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start runs one pass immediately, then one per interval. It returns at once.
func (f *Finalizer) Start(ctx context.Context) {
	f.wg.Add(1)
	go f.run(ctx)
	f.logger.Info("challenge finalizer started", slog.Duration("interval", f.interval))
}

// Stop waits for the running pass, if any, to finish.
func (f *Finalizer) Stop() {
	f.stopOnce.Do(func() { close(f.stopCh) })
	f.wg.Wait()
	f.logger.Info("challenge finalizer stopped")
}

func (f *Finalizer) run(ctx context.Context) {
	defer f.wg.Done()

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		f.pass(ctx)

		select {
		case <-f.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (f *Finalizer) pass(ctx context.Context) {
	n, err := f.svc.Finalize(ctx)
	if err != nil {
		f.logger.Error("finalize challenges", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		f.logger.Info("froze challenge results", slog.Int("participants", n))
	}
}
