// Package scheduler drives the background purge and image audit work on fixed
// intervals. Scans only enqueue; the drain timer is the single consumer and
// executes at most one task per tick.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"dog-marker/internal/event"
	"dog-marker/internal/model"
	"dog-marker/internal/queue"
	"dog-marker/internal/reconciler"
	"dog-marker/internal/service"
)

const (
	DefaultExecInterval    = 10 * time.Second
	DefaultCleanupInterval = 10 * time.Second
)

type ImageReconciler interface {
	Reconcile(ctx context.Context, image model.EntryImage, allowRemoteDelete bool) (reconciler.Outcome, error)
}

type Config struct {
	ExecInterval    time.Duration
	CleanupInterval time.Duration
	// Retention is how long a marked entry waits before the retention scan
	// re-issues its purge. Zero disables the scan.
	Retention time.Duration
}

type Scheduler struct {
	cfg        Config
	lifecycle  *service.LifecycleService
	reconciler ImageReconciler
	queue      *queue.Queue
	bus        event.Bus
	logger     *slog.Logger

	drainMu     sync.Mutex
	trashMu     sync.Mutex
	retentionMu sync.Mutex
	auditMu     sync.Mutex
}

func New(cfg Config, lifecycle *service.LifecycleService, r ImageReconciler, q *queue.Queue, bus event.Bus, logger *slog.Logger) *Scheduler {
	if cfg.ExecInterval <= 0 {
		cfg.ExecInterval = DefaultExecInterval
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:        cfg,
		lifecycle:  lifecycle,
		reconciler: r,
		queue:      q,
		bus:        bus,
		logger:     logger.With("component", "scheduler"),
	}
}

// Run blocks until ctx is cancelled and every timer has returned.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.every(ctx, s.cfg.ExecInterval, func(ctx context.Context) { s.DrainOnce(ctx) }) })
	g.Go(func() error { return s.every(ctx, s.cfg.CleanupInterval, func(ctx context.Context) { s.ScanTrash(ctx) }) })
	g.Go(func() error { return s.every(ctx, s.cfg.CleanupInterval, func(ctx context.Context) { s.AuditImages(ctx) }) })
	if s.cfg.Retention > 0 {
		g.Go(func() error { return s.every(ctx, s.cfg.CleanupInterval, func(ctx context.Context) { s.ScanRetention(ctx) }) })
	} else {
		s.logger.Info("retention scan disabled")
	}

	s.logger.Info("scheduler started",
		"exec_interval", s.cfg.ExecInterval,
		"cleanup_interval", s.cfg.CleanupInterval,
		"retention", s.cfg.Retention,
	)

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Scheduler) every(ctx context.Context, interval time.Duration, fn func(context.Context)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// Queue exposes the pending work for inspection.
func (s *Scheduler) Queue() *queue.Queue {
	return s.queue
}

// DrainOnce executes the oldest pending task. It reports whether a task ran.
// A call that overlaps a running drain returns immediately.
func (s *Scheduler) DrainOnce(ctx context.Context) bool {
	if !s.drainMu.TryLock() {
		return false
	}
	defer s.drainMu.Unlock()

	task, ok := s.queue.Pop()
	if !ok {
		return false
	}

	start := time.Now()
	if err := s.execute(ctx, task); err != nil {
		level := slog.LevelError
		if errors.Is(err, model.ErrExternalUnavailable) {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, "task failed", "task", task.String(), "error", err)
		s.publish(event.TypeTaskFailed, task)
		return true
	}

	s.logger.Debug("task done", "task", task.String(), "duration", time.Since(start))
	return true
}

// ScanTrash enqueues a purge for every entry its owner has trashed.
func (s *Scheduler) ScanTrash(ctx context.Context) int {
	if !s.trashMu.TryLock() {
		return 0
	}
	defer s.trashMu.Unlock()

	ids, err := s.lifecycle.TrashedForPurge(ctx)
	if err != nil {
		s.logger.Error("trash scan failed", "error", err)
		return 0
	}
	return s.enqueueEntries(ids)
}

// ScanRetention enqueues a purge for every entry marked longer than the
// retention horizon ago.
func (s *Scheduler) ScanRetention(ctx context.Context) int {
	if s.cfg.Retention <= 0 || !s.retentionMu.TryLock() {
		return 0
	}
	defer s.retentionMu.Unlock()

	ids, err := s.lifecycle.ExpiredMarked(ctx, s.lifecycle.Now().Add(-s.cfg.Retention))
	if err != nil {
		s.logger.Error("retention scan failed", "error", err)
		return 0
	}
	return s.enqueueEntries(ids)
}

// AuditImages enqueues a liveness check for every stored image.
func (s *Scheduler) AuditImages(ctx context.Context) int {
	if !s.auditMu.TryLock() {
		return 0
	}
	defer s.auditMu.Unlock()

	ids, err := s.lifecycle.AllImageIDs(ctx)
	if err != nil {
		s.logger.Error("image audit failed", "error", err)
		return 0
	}

	added := 0
	for _, id := range ids {
		if s.push(queue.CheckImageLiveness(id)) {
			added++
		}
	}
	return added
}

func (s *Scheduler) enqueueEntries(ids []uuid.UUID) int {
	added := 0
	for _, id := range ids {
		if s.push(queue.BeginPurge(id)) {
			added++
		}
	}
	return added
}

func (s *Scheduler) push(task queue.Task) bool {
	if !s.queue.Push(task) {
		return false
	}
	s.publish(event.TypeTaskEnqueued, task)
	return true
}

func (s *Scheduler) execute(ctx context.Context, task queue.Task) error {
	switch task.Kind {
	case queue.KindBeginPurge:
		return s.beginPurge(ctx, task.EntryID)
	case queue.KindResolveImage:
		return s.reconcileImage(ctx, task.ImageID, true)
	case queue.KindCheckImageLiveness:
		return s.reconcileImage(ctx, task.ImageID, false)
	}
	return fmt.Errorf("unknown task kind %s", task.Kind)
}

func (s *Scheduler) beginPurge(ctx context.Context, entryID uuid.UUID) error {
	outcome, err := s.lifecycle.BeginPurge(ctx, entryID)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if outcome.Skipped {
		s.logger.Debug("purge skipped, entry restored", "entry_id", entryID)
		return nil
	}
	if outcome.Purged {
		s.logger.Info("entry purged", "entry_id", entryID)
		return nil
	}
	for _, imageID := range outcome.ImageIDs {
		s.push(queue.ResolveImage(imageID))
	}
	return nil
}

// reconcileImage settles one image. A purge resolution always may delete the
// remote copy; an audit only may when the owning entry is marked. The current
// image of a live entry is never dropped locally: images[0] is what the entry
// shows, including a cleared image.
func (s *Scheduler) reconcileImage(ctx context.Context, imageID int64, purging bool) error {
	target, err := s.lifecycle.ImageTarget(ctx, imageID)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	image := target.Image

	outcome, err := s.reconciler.Reconcile(ctx, image, purging || target.Marked)
	if err != nil {
		s.publish(event.TypeImageUnreachable, event.ImagePayload{ImageID: image.ID, EntryID: image.EntryID})
		return fmt.Errorf("reconcile image %d: %w", imageID, err)
	}
	if !outcome.DropLocal() {
		return nil
	}
	if !purging && !target.Marked && target.Latest {
		s.logger.Debug("keeping current image of live entry", "image_id", image.ID, "outcome", outcome.String())
		return nil
	}
	return s.lifecycle.DeleteImage(ctx, image)
}

func (s *Scheduler) publish(kind event.Type, payload any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.New(kind, payload, nil))
}
