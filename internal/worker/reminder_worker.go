package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"clinic-booking/internal/usecase"

	"github.com/sirupsen/logrus"
)

// =============================================================================
// Constants
// =============================================================================

const (
	defaultReminderInterval = 15 * time.Minute

	// Upper bound for a single sweep, so Stop never waits on a stuck provider.
	reminderRunTimeout = 2 * time.Minute
)

// =============================================================================
// Types
// =============================================================================

// ReminderWorker periodically sends the day-before reminders.
// Appointments are flagged once reminded, so overlapping sweeps and
// restarts never send the same reminder twice.
type ReminderWorker struct {
	reminders usecase.ReminderUsecase
	interval  time.Duration
	log       *logrus.Logger

	// Graceful shutdown
	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
	running  atomic.Bool
}

// =============================================================================
// Constructor
// =============================================================================

// NewReminderWorker creates the worker and starts its loop.
// Call Stop() during graceful shutdown.
func NewReminderWorker(reminders usecase.ReminderUsecase, interval time.Duration, log *logrus.Logger) *ReminderWorker {
	if interval <= 0 {
		interval = defaultReminderInterval
	}

	w := &ReminderWorker{
		reminders: reminders,
		interval:  interval,
		log:       log,
		stopChan:  make(chan struct{}),
	}

	w.wg.Add(1)
	go w.loop()

	return w
}

// =============================================================================
// Lifecycle Methods
// =============================================================================

// Stop waits for the in-flight sweep and ends the loop.
// Safe to call multiple times.
func (w *ReminderWorker) Stop() {
	if w.stopped.CompareAndSwap(false, true) {
		close(w.stopChan)
		w.wg.Wait()
		w.log.Info("ReminderWorker stopped")
	}
}

// =============================================================================
// Private Methods
// =============================================================================

func (w *ReminderWorker) loop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.WithField("interval", w.interval.String()).Info("ReminderWorker started")

	for {
		select {
		case <-w.stopChan:
			w.log.Debug("ReminderWorker loop stopping")
			return
		case <-ticker.C:
			w.runOnce()
		}
	}
}

// runOnce skips the tick when the previous sweep is still going.
func (w *ReminderWorker) runOnce() {
	if !w.running.CompareAndSwap(false, true) {
		w.log.Debug("Reminder sweep still running, skipping tick")
		return
	}
	defer w.running.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), reminderRunTimeout)
	defer cancel()

	// Abort the sweep when shutdown begins.
	go func() {
		select {
		case <-w.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	run, err := w.reminders.SendDueReminders(ctx)
	if err != nil {
		w.log.Warnf("Failed to send due reminders: %+v", err)
		return
	}

	if run.Candidates > 0 {
		w.log.WithFields(logrus.Fields{
			"candidates": run.Candidates,
			"sent":       run.Sent,
			"failed":     run.Failed,
			"skipped":    run.Skipped,
		}).Info("Reminder sweep finished")
	}
}
