package workerpool

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andrewerf/compgraph/pkg/compgraph/delayqueue"
	"github.com/andrewerf/compgraph/pkg/compgraph/observability"
	"github.com/andrewerf/compgraph/pkg/compgraph/registry"
)

// Job is a unit of work submitted to a Pool.
type Job func()

// namedJob pairs a Job with the id used to identify it in logs and metrics.
// This stays internal to the queue so the public Job type carries no
// observability baggage.
type namedJob struct {
	id  string
	run Job
}

// RepeatStrategy controls how a repeatable job's next occurrence is timed
// relative to the previous one.
type RepeatStrategy int

const (
	// Periodic schedules the next occurrence period after the previous
	// occurrence's scheduled start, before the job body runs.
	Periodic RepeatStrategy = iota
	// Interval schedules the next occurrence period after the previous
	// occurrence's completion, after the job body returns.
	Interval
)

// Option configures a Pool at construction time.
type Option func(*Pool)

// WithLogger attaches a structured logger used for job lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics attaches a metrics recorder for queue depth and active
// worker counts.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(p *Pool) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithMaxIdle overrides how long a worker blocks in PopWait before
// re-checking the running flag.
func WithMaxIdle(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.maxIdle = d
		}
	}
}

// WithName sets the pool's label used in metrics and logs.
func WithName(name string) Option {
	return func(p *Pool) {
		if name != "" {
			p.name = name
		}
	}
}

// WithPanicHandler installs a callback invoked whenever a submitted job
// panics, in addition to the pool's own logging.
func WithPanicHandler(h func(recovered any)) Option {
	return func(p *Pool) {
		p.onPanic = h
	}
}

// Pool runs jobs on a fixed number of worker goroutines draining a shared
// DelayQueue. It never blocks a submitter beyond taking the queue's
// internal mutex.
type Pool struct {
	name    string
	queue   *delayqueue.DelayQueue[namedJob]
	workers int
	maxIdle time.Duration

	jobSeq atomic.Int64
	// named tracks the stop flag for every currently-running named
	// repeatable job, keyed by the name passed to SubmitNamedRepeatable.
	named *registry.Registry[string, *atomic.Bool]

	running atomic.Bool
	active  atomic.Int64
	wg      sync.WaitGroup

	logger  *slog.Logger
	metrics observability.MetricsRecorder
	onPanic func(recovered any)
}

// New creates a Pool with the given number of worker goroutines and
// starts them immediately.
func New(workers int, opts ...Option) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		name:    "pool",
		queue:   delayqueue.New[namedJob](),
		workers: workers,
		maxIdle: time.Millisecond,
		named:   registry.New[string, *atomic.Bool](),
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
	}
	for _, o := range opts {
		o(p)
	}

	p.running.Store(true)
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for p.running.Load() {
		job, ok := p.queue.PopWait(p.maxIdle)
		if !ok {
			continue
		}
		p.runJob(job)
	}
}

func (p *Pool) runJob(job namedJob) {
	active := p.active.Add(1)
	p.metrics.RecordWorkerActive(context.Background(), p.name, active)
	defer func() {
		active := p.active.Add(-1)
		p.metrics.RecordWorkerActive(context.Background(), p.name, active)
		if r := recover(); r != nil {
			observability.LogJobPanic(p.logger, job.id, r)
			if p.onPanic != nil {
				p.onPanic(r)
			}
		}
	}()
	job.run()
}

// nextJobID generates an id unique to this pool, used only for logging and
// metrics correlation - it carries no scheduling meaning.
func (p *Pool) nextJobID() string {
	return p.name + "#" + strconv.FormatInt(p.jobSeq.Add(1), 10)
}

// Submit enqueues job to run as soon as a worker is free.
func (p *Pool) Submit(job Job) {
	p.submitNamed(p.nextJobID(), job, 0)
}

// SubmitDelayed enqueues job to become eligible to run after delay elapses.
func (p *Pool) SubmitDelayed(job Job, delay time.Duration) {
	p.submitNamed(p.nextJobID(), job, delay)
}

func (p *Pool) submitNamed(id string, job Job, delay time.Duration) {
	observability.LogJobSubmitted(p.logger, id, delay)
	p.queue.Push(namedJob{id: id, run: job}, delay)
	p.metrics.RecordQueueDepth(context.Background(), p.name, int64(p.queue.Len()))
}

// SubmitRepeatable submits job to run every period according to strategy.
// If startDelayed is false, job also runs (or schedules, per strategy)
// immediately rather than waiting for the first period to elapse.
func (p *Pool) SubmitRepeatable(job Job, period time.Duration, strategy RepeatStrategy, startDelayed bool) {
	p.submitRepeatable(p.nextJobID(), job, period, strategy, startDelayed, nil)
}

// SubmitNamedRepeatable is SubmitRepeatable with the job tracked under name
// in the pool's registry, so it can later be halted with StopNamed without
// the caller holding on to anything beyond the name. Submitting the same
// name again replaces the previous job's stop flag and restarts tracking.
func (p *Pool) SubmitNamedRepeatable(name string, job Job, period time.Duration, strategy RepeatStrategy, startDelayed bool) {
	stopped := &atomic.Bool{}
	p.named.Register(name, stopped)
	p.submitRepeatable(name, job, period, strategy, startDelayed, stopped)
}

// StopNamed halts further resubmission of the named repeatable job. The
// occurrence already in flight, if any, still runs to completion; only its
// next resubmission is suppressed. Returns false if name is not tracked.
func (p *Pool) StopNamed(name string) bool {
	stopped, ok := p.named.Get(name)
	if !ok {
		return false
	}
	stopped.Store(true)
	p.named.Delete(name)
	return true
}

// NamedJobCount returns how many named repeatable jobs are currently
// tracked, i.e. submitted via SubmitNamedRepeatable and not yet stopped.
func (p *Pool) NamedJobCount() int {
	return p.named.Len()
}

func (p *Pool) submitRepeatable(id string, job Job, period time.Duration, strategy RepeatStrategy, startDelayed bool, stopped *atomic.Bool) {
	if stopped != nil && stopped.Load() {
		return
	}

	var repeatableJob Job
	repeatableJob = func() {
		p.submitRepeatable(id, job, period, strategy, false, stopped)
	}

	switch strategy {
	case Periodic:
		p.submitNamed(id, repeatableJob, period)
		if !startDelayed {
			job()
		}
	case Interval:
		if !startDelayed {
			job()
		}
		p.submitNamed(id, repeatableJob, period)
	default:
		panic(fmt.Sprintf("workerpool: unknown repeat strategy %d", strategy))
	}
}

// SubmitPeriodic is shorthand for SubmitRepeatable with Periodic.
func (p *Pool) SubmitPeriodic(job Job, period time.Duration, startDelayed bool) {
	p.SubmitRepeatable(job, period, Periodic, startDelayed)
}

// SubmitInterval is shorthand for SubmitRepeatable with Interval.
func (p *Pool) SubmitInterval(job Job, period time.Duration, startDelayed bool) {
	p.SubmitRepeatable(job, period, Interval, startDelayed)
}

// WorkerCount returns the fixed number of worker goroutines.
func (p *Pool) WorkerCount() int { return p.workers }

// QueuedJobCount returns the number of jobs currently queued, ready or not.
func (p *Pool) QueuedJobCount() int { return p.queue.Len() }

// ActiveJobCount returns the number of jobs currently executing.
func (p *Pool) ActiveJobCount() int64 { return p.active.Load() }

// Close stops accepting new work from the pool's own goroutines and blocks
// until every worker has observed the shutdown and returned. Jobs already
// queued but not yet popped are discarded.
func (p *Pool) Close() {
	p.running.Store(false)
	p.wg.Wait()
}
