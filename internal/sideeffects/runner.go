package sideeffects

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/manasdevX/ShopEasy-sub001/internal/domain"
	"github.com/manasdevX/ShopEasy-sub001/internal/metrics"
	"github.com/manasdevX/ShopEasy-sub001/internal/repository"
)

// Lease is how long a task stays invisible to the sweeper after it was
// created or claimed. It must outlive a dispatch.
const Lease = time.Minute

// Handler performs one side effect. A returned error schedules a retry.
type Handler func(ctx context.Context, task domain.OutboxTask) error

type Options struct {
	MaxAttempts  int
	BatchSize    int
	Concurrency  int
	PollInterval time.Duration
	Timeout      time.Duration
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 6
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 50
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 8
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 10 * time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = 30 * time.Second
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = time.Hour
	}
	return o
}

// Runner executes outbox tasks: right after the request that created them,
// and again from the sweeper for anything that failed or was never run.
type Runner struct {
	tasks    repository.OutboxRepository
	opts     Options
	now      func() time.Time
	mu       sync.RWMutex
	handlers map[domain.TaskKind]Handler
	wg       sync.WaitGroup
}

func NewRunner(tasks repository.OutboxRepository, opts Options) *Runner {
	return &Runner{
		tasks:    tasks,
		opts:     opts.withDefaults(),
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		handlers: make(map[domain.TaskKind]Handler),
	}
}

func (r *Runner) Register(kind domain.TaskKind, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = h
}

// NewTask builds a pending task leased to the caller, which is expected to
// Dispatch it once the surrounding transaction commits.
func NewTask(kind domain.TaskKind, orderID string, payload any, now time.Time) (domain.OutboxTask, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return domain.OutboxTask{}, fmt.Errorf("marshal %s payload: %w", kind, err)
		}
		raw = b
	}
	return domain.OutboxTask{
		Kind:          kind,
		OrderID:       orderID,
		Payload:       raw,
		Status:        domain.TaskPending,
		NextAttemptAt: now.UTC().Truncate(time.Millisecond).Add(Lease),
	}, nil
}

// Dispatch runs tasks in the background on a detached context and returns
// immediately.
func (r *Runner) Dispatch(tasks []domain.OutboxTask) {
	if len(tasks) == 0 {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.opts.Timeout)
		defer cancel()
		r.runAll(ctx, tasks)
	}()
}

// Wait blocks until every in-flight dispatch has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Start sweeps due tasks every PollInterval until ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()
	slog.Info("outbox sweeper started", "interval", r.opts.PollInterval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("outbox sweeper stopped")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep claims and runs one batch of due tasks, returning how many ran.
func (r *Runner) Sweep(ctx context.Context) int {
	now := r.now()
	due, err := r.tasks.FetchDue(ctx, now, r.opts.BatchSize)
	if err != nil {
		slog.Error("outbox: fetch due tasks failed", "err", err)
		return 0
	}
	claimed := make([]domain.OutboxTask, 0, len(due))
	for i := range due {
		ok, err := r.tasks.Claim(ctx, &due[i], now.Add(Lease))
		if err != nil {
			slog.Error("outbox: claim failed", "task_id", due[i].ID, "err", err)
			continue
		}
		if ok {
			claimed = append(claimed, due[i])
		}
	}
	if len(claimed) == 0 {
		return 0
	}
	runCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()
	r.runAll(runCtx, claimed)
	return len(claimed)
}

func (r *Runner) runAll(ctx context.Context, tasks []domain.OutboxTask) {
	var g errgroup.Group
	g.SetLimit(r.opts.Concurrency)
	for i := range tasks {
		task := tasks[i]
		g.Go(func() error {
			r.runOne(ctx, &task)
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Runner) runOne(ctx context.Context, task *domain.OutboxTask) {
	err := r.invoke(ctx, task)

	bookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err == nil {
		metrics.SideEffectTasks.WithLabelValues(string(task.Kind), "ok").Inc()
		if err := r.tasks.MarkDone(bookCtx, task.ID); err != nil {
			slog.Error("outbox: mark done failed", "task_id", task.ID, "order_id", task.OrderID, "err", err)
		}
		return
	}

	task.Attempts++
	task.LastError = err.Error()
	if task.Attempts >= r.opts.MaxAttempts {
		task.Status = domain.TaskDead
		metrics.SideEffectTasks.WithLabelValues(string(task.Kind), "dead").Inc()
		slog.Error("side effect abandoned, needs manual reconciliation",
			"kind", task.Kind, "order_id", task.OrderID, "task_id", task.ID, "attempts", task.Attempts, "err", err)
	} else {
		task.NextAttemptAt = r.now().Add(r.backoff(task.Attempts))
		metrics.SideEffectTasks.WithLabelValues(string(task.Kind), "retry").Inc()
		slog.Warn("side effect failed, will retry",
			"kind", task.Kind, "order_id", task.OrderID, "task_id", task.ID, "attempts", task.Attempts,
			"next_attempt_at", task.NextAttemptAt, "err", err)
	}
	if err := r.tasks.MarkFailed(bookCtx, task); err != nil {
		slog.Error("outbox: mark failed failed", "task_id", task.ID, "order_id", task.OrderID, "err", err)
	}
}

func (r *Runner) invoke(ctx context.Context, task *domain.OutboxTask) (err error) {
	r.mu.RLock()
	h, ok := r.handlers[task.Kind]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no handler registered for %s", task.Kind)
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return h(ctx, *task)
}

func (r *Runner) backoff(attempts int) time.Duration {
	d := r.opts.BaseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= r.opts.MaxBackoff {
			return r.opts.MaxBackoff
		}
	}
	return d
}
