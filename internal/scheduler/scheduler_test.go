package scheduler

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestAddRejectsBadSpec(t *testing.T) {
	s := &Scheduler{Logger: zerolog.Nop()}
	err := s.Add("tagging", "not a cron spec", func(ctx context.Context, by string) error { return nil })
	if err == nil {
		t.Fatalf("expected an error for a bad cron expression")
	}
}

func TestAddSkipsEmptySpec(t *testing.T) {
	s := &Scheduler{Logger: zerolog.Nop()}
	if err := s.Add("tagging", "", func(ctx context.Context, by string) error { return nil }); err != nil {
		t.Fatalf("empty spec should disable the job, got %v", err)
	}
	if len(s.jobs) != 0 {
		t.Fatalf("expected no jobs registered, got %d", len(s.jobs))
	}
}

func TestAddRegistersValidSpec(t *testing.T) {
	s := &Scheduler{Logger: zerolog.Nop()}
	if err := s.Add("tagging", "*/15 * * * *", func(ctx context.Context, by string) error { return nil }); err != nil {
		t.Fatalf("valid spec rejected: %v", err)
	}
	if len(s.jobs) != 1 {
		t.Fatalf("expected 1 job registered, got %d", len(s.jobs))
	}
}
