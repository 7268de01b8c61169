package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/feedback-fusion/backend/internal/models"
)

const probeTTL = 15 * time.Second

// Fallback routes every operation to the primary backend when it is
// available and transparently repeats the call against the secondary when
// the primary is down or errors at call time. Callers cannot tell which
// backend served a call except via logs.
type Fallback struct {
	Primary   Backend
	Secondary Backend
	Logger    zerolog.Logger

	mu        sync.Mutex
	probedAt  time.Time
	available bool
}

func NewFallback(primary, secondary Backend, logger zerolog.Logger) *Fallback {
	return &Fallback{Primary: primary, Secondary: secondary, Logger: logger}
}

// IsAvailable reports whether the primary backend is configured and
// answering. It never panics; probe failures degrade to false. Results are
// cached briefly so hot read paths do not ping on every call.
func (f *Fallback) IsAvailable(ctx context.Context) bool {
	if f.Primary == nil {
		return false
	}

	f.mu.Lock()
	if time.Since(f.probedAt) < probeTTL {
		ok := f.available
		f.mu.Unlock()
		return ok
	}
	f.mu.Unlock()

	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	err := f.Primary.Ping(probeCtx)

	f.mu.Lock()
	f.probedAt = time.Now()
	f.available = err == nil
	ok := f.available
	f.mu.Unlock()

	if err != nil {
		f.Logger.Warn().Err(err).Msg("primary store unavailable, using fallback")
	}
	return ok
}

// markDown invalidates the cached probe so the next call re-checks.
func (f *Fallback) markDown() {
	f.mu.Lock()
	f.available = false
	f.probedAt = time.Now()
	f.mu.Unlock()
}

// shouldFallBack distinguishes backend failures from domain outcomes.
// A NotFound answer from the primary is authoritative and must not be
// retried against the secondary.
func shouldFallBack(err error) bool {
	return err != nil && !errors.Is(err, ErrNotFound)
}

func call[T any](ctx context.Context, f *Fallback, op string, fn func(Backend) (T, error)) (T, error) {
	if f.IsAvailable(ctx) {
		out, err := fn(f.Primary)
		if !shouldFallBack(err) {
			return out, err
		}
		f.Logger.Error().Err(err).Str("op", op).Msg("primary store call failed, retrying on fallback")
		f.markDown()
	}
	return fn(f.Secondary)
}

func (f *Fallback) Ping(ctx context.Context) error {
	if f.IsAvailable(ctx) {
		return nil
	}
	return f.Secondary.Ping(ctx)
}

func (f *Fallback) GetAll(ctx context.Context) ([]models.Feedback, error) {
	return call(ctx, f, "get_all", func(b Backend) ([]models.Feedback, error) {
		return b.GetAll(ctx)
	})
}

func (f *Fallback) GetByID(ctx context.Context, id string) (models.Feedback, error) {
	return call(ctx, f, "get_by_id", func(b Backend) (models.Feedback, error) {
		return b.GetByID(ctx, id)
	})
}

func (f *Fallback) Create(ctx context.Context, nf models.NewFeedback) (models.Feedback, error) {
	return call(ctx, f, "create", func(b Backend) (models.Feedback, error) {
		return b.Create(ctx, nf)
	})
}

func (f *Fallback) ToggleVote(ctx context.Context, feedbackID, userID string) (models.Feedback, bool, error) {
	type toggled struct {
		item   models.Feedback
		casted bool
	}
	out, err := call(ctx, f, "toggle_vote", func(b Backend) (toggled, error) {
		item, casted, err := b.ToggleVote(ctx, feedbackID, userID)
		return toggled{item, casted}, err
	})
	return out.item, out.casted, err
}

func (f *Fallback) UpsertUser(ctx context.Context, email string) (string, error) {
	return call(ctx, f, "upsert_user", func(b Backend) (string, error) {
		return b.UpsertUser(ctx, email)
	})
}

func (f *Fallback) UpdateStatus(ctx context.Context, id string, status models.Status) (models.Feedback, error) {
	return call(ctx, f, "update_status", func(b Backend) (models.Feedback, error) {
		return b.UpdateStatus(ctx, id, status)
	})
}

func (f *Fallback) UpdateTags(ctx context.Context, id string, tags []string, taggedAt time.Time) error {
	_, err := call(ctx, f, "update_tags", func(b Backend) (struct{}, error) {
		return struct{}{}, b.UpdateTags(ctx, id, tags, taggedAt)
	})
	return err
}

func (f *Fallback) SetAiProcessingStatus(ctx context.Context, id string, status models.AiProcessingStatus) error {
	_, err := call(ctx, f, "set_ai_status", func(b Backend) (struct{}, error) {
		return struct{}{}, b.SetAiProcessingStatus(ctx, id, status)
	})
	return err
}

func (f *Fallback) ListUntagged(ctx context.Context, limit int) ([]models.Feedback, error) {
	return call(ctx, f, "list_untagged", func(b Backend) ([]models.Feedback, error) {
		return b.ListUntagged(ctx, limit)
	})
}

func (f *Fallback) CountUntagged(ctx context.Context) (int, error) {
	return call(ctx, f, "count_untagged", func(b Backend) (int, error) {
		return b.CountUntagged(ctx)
	})
}

func (f *Fallback) TaggedByTheme(ctx context.Context) (map[string][]models.Feedback, error) {
	return call(ctx, f, "tagged_by_theme", func(b Backend) (map[string][]models.Feedback, error) {
		return b.TaggedByTheme(ctx)
	})
}

func (f *Fallback) InsertInsight(ctx context.Context, in models.AiInsight) (models.AiInsight, error) {
	return call(ctx, f, "insert_insight", func(b Backend) (models.AiInsight, error) {
		return b.InsertInsight(ctx, in)
	})
}

func (f *Fallback) ListInsights(ctx context.Context) ([]models.AiInsight, error) {
	return call(ctx, f, "list_insights", func(b Backend) ([]models.AiInsight, error) {
		return b.ListInsights(ctx)
	})
}

func (f *Fallback) UnexportedInsights(ctx context.Context) ([]models.AiInsight, error) {
	return call(ctx, f, "unexported_insights", func(b Backend) ([]models.AiInsight, error) {
		return b.UnexportedInsights(ctx)
	})
}

func (f *Fallback) MarkInsightsExported(ctx context.Context, ids []string, exportedAt time.Time) error {
	_, err := call(ctx, f, "mark_insights_exported", func(b Backend) (struct{}, error) {
		return struct{}{}, b.MarkInsightsExported(ctx, ids, exportedAt)
	})
	return err
}

func (f *Fallback) StartRun(ctx context.Context, task models.TaskType, triggeredBy string, startedAt time.Time) (string, error) {
	return call(ctx, f, "start_run", func(b Backend) (string, error) {
		return b.StartRun(ctx, task, triggeredBy, startedAt)
	})
}

func (f *Fallback) FinishRun(ctx context.Context, id string, status models.RunStatus, processed, failed int, errMsg string, completedAt time.Time) error {
	_, err := call(ctx, f, "finish_run", func(b Backend) (struct{}, error) {
		return struct{}{}, b.FinishRun(ctx, id, status, processed, failed, errMsg, completedAt)
	})
	return err
}

func (f *Fallback) LatestRun(ctx context.Context, task models.TaskType) (models.AutomationLog, error) {
	return call(ctx, f, "latest_run", func(b Backend) (models.AutomationLog, error) {
		return b.LatestRun(ctx, task)
	})
}
