package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/service"
)

// NotificationWorker subscribes the notification handlers to domain events and
// periodically purges read notifications past their retention.
type NotificationWorker struct {
	notifications *service.NotificationService
	retention     time.Duration
	interval      time.Duration
	logger        *zap.Logger
	now           func() time.Time

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewNotificationWorker creates the worker. A zero retention disables the sweep.
func NewNotificationWorker(notifications *service.NotificationService, retention, interval time.Duration, logger *zap.Logger) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &NotificationWorker{
		notifications: notifications,
		retention:     retention,
		interval:      interval,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
		stop:          make(chan struct{}),
	}
}

// Start registers handlers and launches the sweep loop.
func (w *NotificationWorker) Start() {
	if w == nil || w.notifications == nil {
		return
	}
	w.notifications.RegisterHandlers()
	if w.retention <= 0 {
		w.logger.Info("notification retention sweep disabled")
		return
	}

	w.wg.Add(1)
	go w.run()
	w.logger.Info("notification worker started",
		zap.Duration("retention", w.retention),
		zap.Duration("interval", w.interval))
}

// Stop ends the sweep loop and waits for an in-flight sweep to finish.
func (w *NotificationWorker) Stop() {
	if w == nil {
		return
	}
	w.once.Do(func() { close(w.stop) })
	w.wg.Wait()
}

func (w *NotificationWorker) run() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Sweep(context.Background())
		case <-w.stop:
			return
		}
	}
}

// Sweep runs one purge and returns the number of removed rows.
func (w *NotificationWorker) Sweep(ctx context.Context) int64 {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	cutoff := w.now().Add(-w.retention)
	removed, err := w.notifications.PurgeRead(ctx, cutoff)
	if err != nil {
		w.logger.Error("notification retention sweep failed", zap.Error(err))
		return 0
	}
	if removed > 0 {
		w.logger.Info("purged read notifications", zap.Int64("removed", removed), zap.Time("cutoff", cutoff))
	}
	return removed
}
