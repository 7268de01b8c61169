// Package store defines the storage contract shared by the Postgres and
// in-memory backends, plus the fallback decorator that routes between them.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/feedback-fusion/backend/internal/models"
)

var (
	// ErrNotFound signals that a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable signals that a backend cannot serve requests.
	ErrUnavailable = errors.New("backend unavailable")
)

// Backend is the uniform storage interface. Both backends implement every
// operation; the fallback decorator relies on that to transparently repeat
// a failed call against the secondary.
type Backend interface {
	// Ping is a cheap connectivity round-trip. Used by availability probing.
	Ping(ctx context.Context) error

	// GetAll returns approved feedback ordered by votes descending, ties
	// broken by submission time descending.
	GetAll(ctx context.Context) ([]models.Feedback, error)
	GetByID(ctx context.Context, id string) (models.Feedback, error)
	Create(ctx context.Context, nf models.NewFeedback) (models.Feedback, error)

	// ToggleVote casts or withdraws userID's vote on feedbackID atomically.
	// The stored count always equals the ledger cardinality afterwards.
	ToggleVote(ctx context.Context, feedbackID, userID string) (models.Feedback, bool, error)

	UpsertUser(ctx context.Context, email string) (string, error)
	UpdateStatus(ctx context.Context, id string, status models.Status) (models.Feedback, error)
	UpdateTags(ctx context.Context, id string, tags []string, taggedAt time.Time) error
	SetAiProcessingStatus(ctx context.Context, id string, status models.AiProcessingStatus) error

	ListUntagged(ctx context.Context, limit int) ([]models.Feedback, error)
	CountUntagged(ctx context.Context) (int, error)
	TaggedByTheme(ctx context.Context) (map[string][]models.Feedback, error)

	InsertInsight(ctx context.Context, in models.AiInsight) (models.AiInsight, error)
	ListInsights(ctx context.Context) ([]models.AiInsight, error)
	UnexportedInsights(ctx context.Context) ([]models.AiInsight, error)
	MarkInsightsExported(ctx context.Context, ids []string, exportedAt time.Time) error

	StartRun(ctx context.Context, task models.TaskType, triggeredBy string, startedAt time.Time) (string, error)
	FinishRun(ctx context.Context, id string, status models.RunStatus, processed, failed int, errMsg string, completedAt time.Time) error
	LatestRun(ctx context.Context, task models.TaskType) (models.AutomationLog, error)
}
