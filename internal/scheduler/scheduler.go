// Package scheduler runs the periodic maintenance jobs of the booking
// engine (the hold sweep and purge) on fixed intervals, decoupled from
// request handling.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
)

// JobFunc performs one run of a job and returns how many rows it affected.
type JobFunc func(ctx context.Context) (int64, error)

type job struct {
	name     string
	interval time.Duration
	run      JobFunc
}

// Runner fires each registered job on its own ticker.  A failing run is
// logged and the job is retried on the next tick; failures never stop the
// runner.
type Runner struct {
	jobs []job
	log  *log.Logger
	wg   sync.WaitGroup
}

// New returns a Runner logging through logger, or a "scheduler" logger when
// logger is nil.
func New(logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New("scheduler")
	}
	return &Runner{log: logger}
}

// Every registers fn to run every interval.  It must be called before
// Start.
func (r *Runner) Every(name string, interval time.Duration, fn JobFunc) {
	if interval <= 0 {
		panic(fmt.Sprintf("scheduler: job %s needs a positive interval", name))
	}
	r.jobs = append(r.jobs, job{name: name, interval: interval, run: fn})
}

// Start launches one goroutine per job.  Jobs stop when ctx is cancelled;
// use Wait to block until they have returned.
func (r *Runner) Start(ctx context.Context) {
	for _, j := range r.jobs {
		r.wg.Add(1)
		go r.loop(ctx, j)
	}
}

// Wait blocks until every job goroutine has exited.
func (r *Runner) Wait() { r.wg.Wait() }

func (r *Runner) loop(ctx context.Context, j job) {
	defer r.wg.Done()
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runOnce(ctx, j)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, j job) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Errorf("job %s panicked: %v", j.name, p)
		}
	}()
	start := time.Now()
	n, err := j.run(ctx)
	if err != nil {
		r.log.Errorf("job %s failed after %s: %v; retrying in %s", j.name, time.Since(start), err, j.interval)
		return
	}
	if n > 0 {
		r.log.Infof("job %s affected %d rows in %s", j.name, n, time.Since(start))
	}
}
