// Package worker runs the optional periodic sweep of expired holds.  The
// request path already sweeps the showtime it touches; this worker bounds
// how long a stale hold can linger on showtimes nobody is looking at.
package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// TypeSweepExpired is the asynq task type enqueued by the scheduler.
const TypeSweepExpired = "showseat:sweep_expired"

// Sweeper releases expired holds across every showtime.
type Sweeper interface {
	SweepAll(ctx context.Context) (int64, error)
}

// NewSweepTask builds the payload-less sweep task.
func NewSweepTask() *asynq.Task {
	return asynq.NewTask(TypeSweepExpired, nil)
}

// SweepHandler processes TypeSweepExpired tasks.
type SweepHandler struct {
	sweeper Sweeper
	log     *logrus.Logger
}

func NewSweepHandler(s Sweeper, log *logrus.Logger) *SweepHandler {
	return &SweepHandler{sweeper: s, log: log}
}

// ProcessTask implements asynq.Handler.
func (h *SweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	n, err := h.sweeper.SweepAll(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", t.Type(), err)
	}
	h.log.WithContext(ctx).WithField("released", n).Debug("periodic sweep done")
	return nil
}

// Runner owns the asynq scheduler and server pair.
type Runner struct {
	scheduler *asynq.Scheduler
	server    *asynq.Server
	mux       *asynq.ServeMux
	log       *logrus.Logger
}

// NewRunner registers the sweep task on schedule (cron syntax) and wires
// the handler.  Nothing runs until Start is called.
func NewRunner(redisOpt asynq.RedisClientOpt, schedule string, s Sweeper, log *logrus.Logger) (*Runner, error) {
	scheduler := asynq.NewScheduler(redisOpt, nil)
	if _, err := scheduler.Register(schedule, NewSweepTask(), asynq.MaxRetry(0)); err != nil {
		return nil, fmt.Errorf("register sweep schedule %q: %w", schedule, err)
	}
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 1,
		Logger:      log,
	})
	mux := asynq.NewServeMux()
	mux.Handle(TypeSweepExpired, NewSweepHandler(s, log))
	return &Runner{scheduler: scheduler, server: server, mux: mux, log: log}, nil
}

// Start launches the scheduler and the worker server in the background.
func (r *Runner) Start() error {
	if err := r.scheduler.Start(); err != nil {
		return fmt.Errorf("start sweep scheduler: %w", err)
	}
	if err := r.server.Start(r.mux); err != nil {
		r.scheduler.Shutdown()
		return fmt.Errorf("start sweep worker: %w", err)
	}
	r.log.Info("periodic hold sweeper started")
	return nil
}

// Shutdown stops both halves, letting an in-flight sweep finish.
func (r *Runner) Shutdown() {
	r.scheduler.Shutdown()
	r.server.Shutdown()
}

// RedisOpt converts go-redis client options into asynq's connection options
// so the sweeper shares the Redis the rate limiter and cache use.
func RedisOpt(o *redis.Options) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:      o.Addr,
		Password:  o.Password,
		DB:        o.DB,
		TLSConfig: o.TLSConfig,
	}
}
