package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrUnknownJob is returned by Trigger for a name never registered.
	ErrUnknownJob = errors.New("cron: unknown job")

	// ErrJobRunning is returned by Trigger while the job is mid-run.
	ErrJobRunning = errors.New("cron: job already running")
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule parses a 5-field cron expression or a descriptor such as
// "@hourly" or "@every 5m".
func ParseSchedule(expr string) (cron.Schedule, error) {
	return parser.Parse(expr)
}

// JobStatus is a point-in-time view of one registered job.
type JobStatus struct {
	Name      string    `json:"name"`
	Schedule  string    `json:"schedule"`
	Running   bool      `json:"running"`
	Runs      int       `json:"runs"`
	LastRun   time.Time `json:"last_run,omitzero"`
	LastError string    `json:"last_error,omitempty"`
	Next      time.Time `json:"next,omitzero"`
}

type entry struct {
	job  Job
	lock sync.Mutex
	id   cron.EntryID

	// guarded by Scheduler.mu
	running bool
	runs    int
	lastRun time.Time
	lastErr error
}

// Scheduler runs catalog maintenance jobs on cron schedules. A tick that
// finds the previous run of the same job still going is skipped, and
// Trigger refuses to overlap a running job.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]*entry
	order   []string
	logger  *slog.Logger
	tracer  trace.Tracer
	ctx     context.Context
	cancel  context.CancelFunc
	now     func() time.Time
}

// NewScheduler creates a scheduler. Jobs must be registered before Start().
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		entries: make(map[string]*entry),
		logger:  logger,
		tracer:  otel.Tracer("github.com/flemzord/emotewall/internal/cron"),
		ctx:     ctx,
		cancel:  cancel,
		now:     time.Now,
	}
}

// RegisterJob adds a job to the scheduler. Must be called before Start().
// Returns an error if a job with the same name is already registered.
func (s *Scheduler) RegisterJob(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := j.Name()
	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("cron: duplicate job name %q", name)
	}
	s.entries[name] = &entry{job: j}
	s.order = append(s.order, name)
	return nil
}

// Start validates every schedule and begins executing registered jobs.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := cron.New(cron.WithParser(parser))
	for _, name := range s.order {
		e := s.entries[name]
		id, err := c.AddFunc(e.job.Schedule(), func() {
			if err := s.run(s.ctx, e); errors.Is(err, ErrJobRunning) {
				s.logger.Warn("cron: job still running, skipping tick", "job", name)
			}
		})
		if err != nil {
			return fmt.Errorf("cron: invalid schedule for job %q: %w", name, err)
		}
		e.id = id
	}

	s.cron = c
	s.cron.Start()
	s.logger.Info("cron: scheduler started", "jobs", len(s.order))
	return nil
}

// Trigger runs the named job now and returns its error. It does not wait
// for a run already in progress.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(ctx, e)
}

func (s *Scheduler) run(ctx context.Context, e *entry) error {
	if !e.lock.TryLock() {
		return ErrJobRunning
	}
	defer e.lock.Unlock()

	name := e.job.Name()
	s.setRunning(e, true, nil)

	ctx, span := s.tracer.Start(ctx, "cron."+name, trace.WithAttributes(attribute.String("cron.job", name)))
	defer span.End()

	s.logger.Debug("cron: job started", "job", name)
	err := e.job.Run(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("cron: job failed", "job", name, "error", err)
	} else {
		s.logger.Debug("cron: job completed", "job", name)
	}
	s.setRunning(e, false, err)
	return err
}

func (s *Scheduler) setRunning(e *entry, running bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.running = running
	if !running {
		e.runs++
		e.lastRun = s.now()
		e.lastErr = err
	}
}

// Jobs reports every registered job sorted by name.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.entries))
	for name, e := range s.entries {
		st := JobStatus{
			Name:     name,
			Schedule: e.job.Schedule(),
			Running:  e.running,
			Runs:     e.runs,
			LastRun:  e.lastRun,
		}
		if e.lastErr != nil {
			st.LastError = e.lastErr.Error()
		}
		if s.cron != nil && e.id != 0 {
			st.Next = s.cron.Entry(e.id).Next
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Stop cancels in-flight jobs and waits for them to return.
func (s *Scheduler) Stop(_ context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.mu.Unlock()

	s.cancel()
	if c != nil {
		<-c.Stop().Done()
		s.logger.Info("cron: scheduler stopped")
	}
	return nil
}
