package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/target/gradesync/internal/core"
	"github.com/target/gradesync/internal/domain/gradesync"
	"github.com/target/gradesync/internal/domain/model"
	apperrors "github.com/target/gradesync/internal/errors"
	"github.com/target/gradesync/internal/observability/metrics"
	"github.com/target/gradesync/internal/observability/statsd"
)

// maxPropagatorBackoff caps the exponential wait between override attempts.
const maxPropagatorBackoff = 30 * time.Second

// PropagatorConfig tunes the override worker pool.
type PropagatorConfig struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	Backoff     time.Duration
	// Scale is the linear factor applied to averages before writing the override.
	Scale float64
}

func (c *PropagatorConfig) sanitize() {
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.QueueSize < 1 {
		c.QueueSize = 1
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.Backoff <= 0 {
		c.Backoff = 500 * time.Millisecond
	}
	if c.Scale <= 0 {
		c.Scale = 25
	}
}

// PropagatorPorts are the collaborators of the propagation workers.
type PropagatorPorts struct {
	Writer   core.OverrideWriter               // Required: secondary override API
	Resolver *EnrollmentResolver               // Required: user to enrollment lookup
	Failures core.PropagationFailureRepository // Optional: durable failure log
}

// OverridePropagatorOptions groups dependencies for OverridePropagator.
type OverridePropagatorOptions struct {
	Ports   PropagatorPorts
	Config  PropagatorConfig
	Logger  *slog.Logger
	Metrics statsd.Sink
}

type propagationTask struct {
	courseID string
	userID   string
	average  float64
}

// OverridePropagator writes rescaled override scores on a detached worker pool.
// Enqueueing never blocks; errors stay inside the pool and end up in the
// failure log.
type OverridePropagator struct {
	ports   PropagatorPorts
	config  PropagatorConfig
	logger  *slog.Logger
	metrics statsd.Sink

	queue chan propagationTask
	group *errgroup.Group

	mu      sync.Mutex
	started bool
	closed  bool
	pending int
	waiters []chan struct{}
}

// NewOverridePropagator constructs an OverridePropagator. Call Start before Propagate.
func NewOverridePropagator(opts OverridePropagatorOptions) (*OverridePropagator, error) {
	if opts.Ports.Writer == nil {
		return nil, errors.New("OverrideWriter is required")
	}
	if opts.Ports.Resolver == nil {
		return nil, errors.New("EnrollmentResolver is required")
	}
	cfg := opts.Config
	cfg.sanitize()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OverridePropagator{
		ports:   opts.Ports,
		config:  cfg,
		logger:  logger.With("component", "override_propagator"),
		metrics: opts.Metrics,
		queue:   make(chan propagationTask, cfg.QueueSize),
	}, nil
}

// Start launches the workers. They run until Close is called or ctx ends;
// tasks still queued when ctx ends are discarded.
func (p *OverridePropagator) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	g, gctx := errgroup.WithContext(ctx)
	for range p.config.Workers {
		g.Go(func() error {
			for task := range p.queue {
				if gctx.Err() == nil {
					p.handle(gctx, task)
				}
				p.done()
			}
			return nil
		})
	}
	p.group = g
	p.logger.DebugContext(ctx, "override propagator started",
		"workers", p.config.Workers,
		"queue_size", p.config.QueueSize,
	)
}

// Propagate enqueues an override write for userID. It reports false when the
// task was dropped because the queue is full or the propagator is closed.
func (p *OverridePropagator) Propagate(courseID, userID string, average float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.logger.Warn("override dropped: propagator closed", "course_id", courseID, "user_id", userID)
		metrics.EmitAttempt(p.metrics, "override_write", metrics.ResultDropped, nil)
		return false
	}
	select {
	case p.queue <- propagationTask{courseID: courseID, userID: userID, average: average}:
		p.pending++
		return true
	default:
		p.logger.Warn("override dropped: queue full",
			"course_id", courseID,
			"user_id", userID,
			"queue_size", p.config.QueueSize,
		)
		metrics.EmitAttempt(p.metrics, "override_write", metrics.ResultDropped, nil)
		return false
	}
}

// Drain waits until every accepted task has been handled or ctx ends.
func (p *OverridePropagator) Drain(ctx context.Context) error {
	p.mu.Lock()
	if p.pending == 0 {
		p.mu.Unlock()
		return nil
	}
	w := make(chan struct{})
	p.waiters = append(p.waiters, w)
	p.mu.Unlock()

	select {
	case <-w:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks and waits for the workers to finish the queue.
func (p *OverridePropagator) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	g := p.group
	p.mu.Unlock()

	if g == nil {
		return nil
	}
	return g.Wait()
}

func (p *OverridePropagator) done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending--
	if p.pending > 0 {
		return
	}
	for _, w := range p.waiters {
		close(w)
	}
	p.waiters = nil
}

func (p *OverridePropagator) handle(ctx context.Context, task propagationTask) {
	scaled := gradesync.RescaleOverride(task.average, p.config.Scale)

	var lastErr error
	attempts := 0
	for attempts < p.config.MaxAttempts {
		if attempts > 0 && sleepCtx(ctx, p.backoff(attempts)) != nil {
			return
		}
		attempts++
		lastErr = p.write(ctx, task, scaled)
		if lastErr == nil {
			metrics.EmitAttempt(p.metrics, "override_write", metrics.ResultSuccess, nil)
			return
		}
		if ctx.Err() != nil {
			return
		}
		metrics.EmitAttempt(p.metrics, "override_write", metrics.ResultError, lastErr)
		if !apperrors.IsRetryable(lastErr) {
			break
		}
	}

	p.logger.WarnContext(ctx, "override write failed",
		"course_id", task.courseID,
		"user_id", task.userID,
		"scaled", scaled,
		"attempts", attempts,
		"error", lastErr,
	)
	p.recordFailure(ctx, task, scaled, attempts, lastErr)
}

func (p *OverridePropagator) write(ctx context.Context, task propagationTask, scaled float64) error {
	enrollmentID, err := p.ports.Resolver.Resolve(ctx, task.courseID, task.userID)
	if err != nil {
		return fmt.Errorf("resolve enrollment: %w", err)
	}
	if err = p.ports.Writer.SetOverrideScore(ctx, enrollmentID, scaled); err != nil {
		return fmt.Errorf("set override score: %w", err)
	}
	return nil
}

func (p *OverridePropagator) recordFailure(
	ctx context.Context,
	task propagationTask,
	scaled float64,
	attempts int,
	cause error,
) {
	if p.ports.Failures == nil {
		return
	}
	failure := &model.PropagationFailure{
		CourseID: task.courseID,
		UserID:   task.userID,
		Scaled:   scaled,
		Attempts: attempts,
		Error:    cause.Error(),
	}
	if err := p.ports.Failures.Record(ctx, failure); err != nil {
		p.logger.ErrorContext(ctx, "record propagation failure",
			"course_id", task.courseID,
			"user_id", task.userID,
			"error", err,
		)
	}
}

// backoff doubles the base delay per completed attempt.
func (p *OverridePropagator) backoff(completed int) time.Duration {
	d := p.config.Backoff
	for i := 1; i < completed; i++ {
		d *= 2
		if d >= maxPropagatorBackoff {
			return maxPropagatorBackoff
		}
	}
	return d
}
