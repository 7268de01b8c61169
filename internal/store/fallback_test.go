package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/feedback-fusion/backend/internal/memdb"
	"github.com/feedback-fusion/backend/internal/models"
	"github.com/feedback-fusion/backend/internal/store"
)

// flaky wraps a working backend and injects failures per call site.
type flaky struct {
	store.Backend
	pingErr error
	callErr error
}

func (f *flaky) Ping(ctx context.Context) error {
	if f.pingErr != nil {
		return f.pingErr
	}
	return f.Backend.Ping(ctx)
}

func (f *flaky) GetAll(ctx context.Context) ([]models.Feedback, error) {
	if f.callErr != nil {
		return nil, f.callErr
	}
	return f.Backend.GetAll(ctx)
}

func seed(t *testing.T, b store.Backend, title string) models.Feedback {
	t.Helper()
	f, err := b.Create(context.Background(), models.NewFeedback{
		Title:       title,
		Description: "A long enough description",
		Category:    "Beep",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return f
}

func TestFallbackWithoutPrimary(t *testing.T) {
	secondary := memdb.New()
	fb := store.NewFallback(nil, secondary, zerolog.Nop())
	ctx := context.Background()

	if fb.IsAvailable(ctx) {
		t.Fatalf("expected primary to be unavailable")
	}
	if err := fb.Ping(ctx); err != nil {
		t.Fatalf("expected secondary ping to succeed, got %v", err)
	}

	seed(t, fb, "Runs entirely on the in-memory store")
	all, err := fb.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 item from secondary, got %d", len(all))
	}
}

func TestFallbackPrefersHealthyPrimary(t *testing.T) {
	primary := memdb.New()
	secondary := memdb.New()
	fb := store.NewFallback(primary, secondary, zerolog.Nop())
	ctx := context.Background()

	seed(t, fb, "Stored on the primary backend")

	direct, err := primary.GetAll(ctx)
	if err != nil {
		t.Fatalf("primary get all: %v", err)
	}
	if len(direct) != 1 {
		t.Fatalf("expected the write on the primary, got %d items", len(direct))
	}
	shadow, err := secondary.GetAll(ctx)
	if err != nil {
		t.Fatalf("secondary get all: %v", err)
	}
	if len(shadow) != 0 {
		t.Fatalf("expected nothing on the secondary, got %d items", len(shadow))
	}
}

func TestFallbackRetriesFailedCallOnSecondary(t *testing.T) {
	primary := &flaky{Backend: memdb.New(), callErr: errors.New("connection reset")}
	secondary := memdb.New()
	fb := store.NewFallback(primary, secondary, zerolog.Nop())
	ctx := context.Background()

	seed(t, secondary, "Only the secondary has this one")

	all, err := fb.GetAll(ctx)
	if err != nil {
		t.Fatalf("expected the fallback to absorb the primary failure, got %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 item served from secondary, got %d", len(all))
	}
}

func TestFallbackDoesNotRetryNotFound(t *testing.T) {
	primary := memdb.New()
	secondary := memdb.New()
	fb := store.NewFallback(primary, secondary, zerolog.Nop())
	ctx := context.Background()

	// The item exists only on the secondary. A NotFound from the healthy
	// primary is authoritative and must surface as-is.
	ghost := seed(t, secondary, "Exists only on the secondary")

	if _, err := fb.GetByID(ctx, ghost.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from the primary, got %v", err)
	}
}

func TestFallbackProbeDegradesWhenPingFails(t *testing.T) {
	primary := &flaky{Backend: memdb.New(), pingErr: errors.New("dial timeout")}
	secondary := memdb.New()
	fb := store.NewFallback(primary, secondary, zerolog.Nop())
	ctx := context.Background()

	if fb.IsAvailable(ctx) {
		t.Fatalf("expected a failing ping to mark the primary unavailable")
	}

	seed(t, fb, "Lands on the secondary while primary is down")
	direct, err := primary.Backend.GetAll(ctx)
	if err != nil {
		t.Fatalf("primary get all: %v", err)
	}
	if len(direct) != 0 {
		t.Fatalf("expected no writes on the downed primary, got %d", len(direct))
	}
}
