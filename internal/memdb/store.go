// Package memdb implements the fallback storage backend entirely in memory.
// It is an explicit, injected store with its own lifecycle: construct one per
// server (or per test), never share through package state.
package memdb

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/feedback-fusion/backend/internal/models"
	"github.com/feedback-fusion/backend/internal/store"
)

type Store struct {
	clock clockwork.Clock

	mu       sync.Mutex
	feedback map[string]*models.Feedback
	// votes holds the ledger membership per feedback id. Feedback.Votes is a
	// projection of these sets and is recomputed on every toggle.
	votes    map[string]map[string]time.Time
	users    map[string]string
	insights map[string]*models.AiInsight
	runs     map[string]*models.AutomationLog

	// insertion counters give deterministic order to same-timestamp rows
	insightOrder []string
}

func New() *Store {
	return NewWithClock(clockwork.NewRealClock())
}

func NewWithClock(clock clockwork.Clock) *Store {
	return &Store{
		clock:    clock,
		feedback: map[string]*models.Feedback{},
		votes:    map[string]map[string]time.Time{},
		users:    map[string]string{},
		insights: map[string]*models.AiInsight{},
		runs:     map[string]*models.AutomationLog{},
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return nil
}

func (s *Store) snapshot(f *models.Feedback) models.Feedback {
	out := *f
	out.Tags = append([]string{}, f.Tags...)
	out.VotedBy = s.voters(f.ID)
	out.Votes = len(s.votes[f.ID])
	return out
}

func (s *Store) voters(feedbackID string) []string {
	members := s.votes[feedbackID]
	type voter struct {
		id string
		at time.Time
	}
	ordered := make([]voter, 0, len(members))
	for id, at := range members {
		ordered = append(ordered, voter{id, at})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].at.Equal(ordered[j].at) {
			return ordered[i].id < ordered[j].id
		}
		return ordered[i].at.Before(ordered[j].at)
	})
	out := make([]string, 0, len(ordered))
	for _, v := range ordered {
		out = append(out, v.id)
	}
	return out
}

func (s *Store) GetAll(ctx context.Context) ([]models.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Feedback{}
	for _, f := range s.feedback {
		if f.IsApproved {
			out = append(out, s.snapshot(f))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Votes != out[j].Votes {
			return out[i].Votes > out[j].Votes
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (models.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.feedback[id]
	if !ok {
		return models.Feedback{}, store.ErrNotFound
	}
	return s.snapshot(f), nil
}

func (s *Store) Create(ctx context.Context, nf models.NewFeedback) (models.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now().UTC()
	f := &models.Feedback{
		ID:                 uuid.NewString(),
		Title:              nf.Title,
		Description:        nf.Description,
		Category:           nf.Category,
		SubCategory:        nf.SubCategory,
		Status:             models.StatusUnderReview,
		Tags:               []string{},
		AiProcessingStatus: models.AiPending,
		IsApproved:         true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	s.feedback[f.ID] = f
	s.votes[f.ID] = map[string]time.Time{}
	return s.snapshot(f), nil
}

func (s *Store) ToggleVote(ctx context.Context, feedbackID, userID string) (models.Feedback, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.feedback[feedbackID]
	if !ok {
		return models.Feedback{}, false, store.ErrNotFound
	}
	members := s.votes[feedbackID]
	if members == nil {
		members = map[string]time.Time{}
		s.votes[feedbackID] = members
	}

	var casted bool
	if _, voted := members[userID]; voted {
		delete(members, userID)
		casted = false
	} else {
		members[userID] = s.clock.Now().UTC()
		casted = true
	}
	f.Votes = len(members)
	f.UpdatedAt = s.clock.Now().UTC()
	return s.snapshot(f), casted, nil
}

func (s *Store) UpsertUser(ctx context.Context, email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.users[email]; ok {
		return id, nil
	}
	id := uuid.NewString()
	s.users[email] = id
	return id, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status models.Status) (models.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.feedback[id]
	if !ok {
		return models.Feedback{}, store.ErrNotFound
	}
	f.Status = status
	f.UpdatedAt = s.clock.Now().UTC()
	return s.snapshot(f), nil
}

func (s *Store) UpdateTags(ctx context.Context, id string, tags []string, taggedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.feedback[id]
	if !ok {
		return store.ErrNotFound
	}
	f.Tags = append([]string{}, tags...)
	f.AiProcessingStatus = models.AiCompleted
	t := taggedAt
	f.AiTaggedAt = &t
	f.UpdatedAt = s.clock.Now().UTC()
	return nil
}

func (s *Store) SetAiProcessingStatus(ctx context.Context, id string, status models.AiProcessingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.feedback[id]
	if !ok {
		return store.ErrNotFound
	}
	f.AiProcessingStatus = status
	f.UpdatedAt = s.clock.Now().UTC()
	return nil
}

func (s *Store) listSorted(filter func(*models.Feedback) bool) []models.Feedback {
	out := []models.Feedback{}
	for _, f := range s.feedback {
		if filter(f) {
			out = append(out, s.snapshot(f))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) ListUntagged(ctx context.Context, limit int) ([]models.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.listSorted(func(f *models.Feedback) bool {
		return f.IsApproved && f.AiProcessingStatus == models.AiPending
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CountUntagged(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, f := range s.feedback {
		if f.IsApproved && f.AiProcessingStatus == models.AiPending {
			n++
		}
	}
	return n, nil
}

func (s *Store) TaggedByTheme(ctx context.Context) (map[string][]models.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	grouped := map[string][]models.Feedback{}
	for _, f := range s.listSorted(func(f *models.Feedback) bool {
		return f.IsApproved && f.AiProcessingStatus == models.AiCompleted && len(f.Tags) > 0
	}) {
		grouped[f.Theme()] = append(grouped[f.Theme()], f)
	}
	return grouped, nil
}

func (s *Store) InsertInsight(ctx context.Context, in models.AiInsight) (models.AiInsight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in.ID = uuid.NewString()
	stored := in
	s.insights[in.ID] = &stored
	s.insightOrder = append(s.insightOrder, in.ID)
	return in, nil
}

func (s *Store) ListInsights(ctx context.Context) ([]models.AiInsight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.AiInsight, 0, len(s.insightOrder))
	for _, id := range s.insightOrder {
		out = append(out, *s.insights[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PriorityScore != out[j].PriorityScore {
			return out[i].PriorityScore > out[j].PriorityScore
		}
		return out[i].GeneratedAt.After(out[j].GeneratedAt)
	})
	return out, nil
}

func (s *Store) UnexportedInsights(ctx context.Context) ([]models.AiInsight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.AiInsight{}
	for _, id := range s.insightOrder {
		if s.insights[id].ExportedAt == nil {
			out = append(out, *s.insights[id])
		}
	}
	return out, nil
}

func (s *Store) MarkInsightsExported(ctx context.Context, ids []string, exportedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if in, ok := s.insights[id]; ok {
			t := exportedAt
			in.ExportedAt = &t
		}
	}
	return nil
}

func (s *Store) StartRun(ctx context.Context, task models.TaskType, triggeredBy string, startedAt time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := &models.AutomationLog{
		ID:          uuid.NewString(),
		TaskType:    task,
		Status:      models.RunRunning,
		StartedAt:   startedAt,
		TriggeredBy: triggeredBy,
	}
	s.runs[l.ID] = l
	return l.ID, nil
}

func (s *Store) FinishRun(ctx context.Context, id string, status models.RunStatus, processed, failed int, errMsg string, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.runs[id]
	if !ok {
		return store.ErrNotFound
	}
	l.Status = status
	l.ItemsProcessed = processed
	l.ItemsFailed = failed
	l.ErrorMessage = errMsg
	t := completedAt
	l.CompletedAt = &t
	return nil
}

func (s *Store) LatestRun(ctx context.Context, task models.TaskType) (models.AutomationLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *models.AutomationLog
	for _, l := range s.runs {
		if l.TaskType != task {
			continue
		}
		if latest == nil || l.StartedAt.After(latest.StartedAt) {
			latest = l
		}
	}
	if latest == nil {
		return models.AutomationLog{}, store.ErrNotFound
	}
	return *latest, nil
}
