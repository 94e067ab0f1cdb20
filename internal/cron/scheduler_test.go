package cron_test

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/flemzord/emotewall/internal/cron"
	"github.com/flemzord/emotewall/internal/cron/crontest"
)

func TestScheduler_RegisterJob_DuplicateName(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(slog.Default())
	if err := s.RegisterJob(&crontest.Job{JobName: "catalog_refresh", Spec: "*/15 * * * *"}); err != nil {
		t.Fatalf("first registration should succeed: %v", err)
	}
	if err := s.RegisterJob(&crontest.Job{JobName: "catalog_refresh", Spec: "@hourly"}); err == nil {
		t.Fatal("duplicate registration should fail")
	}
}

func TestScheduler_Start_InvalidSchedule(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(slog.Default())
	_ = s.RegisterJob(&crontest.Job{JobName: "bad", Spec: "invalid"})
	if err := s.Start(); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(nil)
	_ = s.RegisterJob(&crontest.Job{JobName: "snapshot_prune", Spec: "@every 5m"})

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	jobs := s.Jobs()
	if len(jobs) != 1 || jobs[0].Next.IsZero() {
		t.Errorf("Jobs = %+v, want next run scheduled", jobs)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(slog.Default())
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestScheduler_Trigger(t *testing.T) {
	t.Parallel()

	job := &crontest.Job{JobName: "catalog_refresh", Spec: "@hourly"}
	s := cron.NewScheduler(slog.Default())
	_ = s.RegisterJob(job)

	if err := s.Trigger(context.Background(), "catalog_refresh"); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if job.Runs() != 1 {
		t.Errorf("calls = %d, want 1", job.Runs())
	}

	st := s.Jobs()[0]
	if st.Runs != 1 || st.LastRun.IsZero() || st.LastError != "" || st.Running {
		t.Errorf("status = %+v", st)
	}
}

func TestScheduler_Trigger_Unknown(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(slog.Default())
	if err := s.Trigger(context.Background(), "nope"); !errors.Is(err, cron.ErrUnknownJob) {
		t.Errorf("err = %v, want ErrUnknownJob", err)
	}
}

func TestScheduler_Trigger_RecordsError(t *testing.T) {
	t.Parallel()

	boom := errors.New("cdn unreachable")
	s := cron.NewScheduler(slog.Default())
	_ = s.RegisterJob(&crontest.Job{
		JobName: "catalog_refresh",
		Spec:    "@hourly",
		Fn:      func(context.Context) error { return boom },
	})

	if err := s.Trigger(context.Background(), "catalog_refresh"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if got := s.Jobs()[0].LastError; got != boom.Error() {
		t.Errorf("LastError = %q", got)
	}
}

func TestScheduler_Trigger_NoOverlap(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32
	s := cron.NewScheduler(slog.Default())
	_ = s.RegisterJob(&crontest.Job{
		JobName: "slow",
		Spec:    "@hourly",
		Fn: func(context.Context) error {
			if calls.Add(1) == 1 {
				close(started)
			}
			<-release
			return nil
		},
	})

	done := make(chan error, 1)
	go func() { done <- s.Trigger(context.Background(), "slow") }()
	<-started

	if err := s.Trigger(context.Background(), "slow"); !errors.Is(err, cron.ErrJobRunning) {
		t.Errorf("overlapping Trigger err = %v, want ErrJobRunning", err)
	}
	if !s.Jobs()[0].Running {
		t.Error("job should report running")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first Trigger: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestScheduler_JobsSorted(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(slog.Default())
	_ = s.RegisterJob(&crontest.Job{JobName: "snapshot_prune", Spec: "0 * * * *"})
	_ = s.RegisterJob(&crontest.Job{JobName: "catalog_refresh", Spec: "*/15 * * * *"})

	jobs := s.Jobs()
	if len(jobs) != 2 || jobs[0].Name != "catalog_refresh" || jobs[1].Schedule != "0 * * * *" {
		t.Errorf("Jobs = %+v", jobs)
	}
}

func TestParseSchedule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		expr string
		ok   bool
	}{
		{"*/15 * * * *", true},
		{"0 * * * *", true},
		{"@hourly", true},
		{"@every 5m", true},
		{"", false},
		{"60 * * * *", false},
		{"* * * * * *", false},
	}
	for _, tt := range tests {
		_, err := cron.ParseSchedule(tt.expr)
		if (err == nil) != tt.ok {
			t.Errorf("ParseSchedule(%q) err = %v, want ok=%v", tt.expr, err, tt.ok)
		}
	}
}
