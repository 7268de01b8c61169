// Package db implements the primary storage backend on Postgres.
package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/feedback-fusion/backend/internal/models"
	"github.com/feedback-fusion/backend/internal/store"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const feedbackColumns = `f.id, f.title, f.description, f.category, f.sub_category, f.status,
	f.votes, f.tags, f.ai_processing_status, f.ai_tagged_at, f.is_approved,
	f.moderated_at, f.moderated_by, f.admin_notes, f.created_at, f.updated_at`

func scanFeedback(row pgx.Row) (models.Feedback, error) {
	var (
		f           models.Feedback
		subCategory *string
		moderatedBy *string
		adminNotes  *string
	)
	err := row.Scan(
		&f.ID, &f.Title, &f.Description, &f.Category, &subCategory, &f.Status,
		&f.Votes, &f.Tags, &f.AiProcessingStatus, &f.AiTaggedAt, &f.IsApproved,
		&f.ModeratedAt, &moderatedBy, &adminNotes, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return models.Feedback{}, err
	}
	if subCategory != nil {
		f.SubCategory = *subCategory
	}
	if moderatedBy != nil {
		f.ModeratedBy = *moderatedBy
	}
	if adminNotes != nil {
		f.AdminNotes = *adminNotes
	}
	if f.Tags == nil {
		f.Tags = []string{}
	}
	return f, nil
}

func (s *Store) loadVoters(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, feedbackID string) ([]string, error) {
	rows, err := q.Query(ctx, `SELECT u.email FROM votes v JOIN users u ON u.id = v.user_id WHERE v.feedback_id = $1 ORDER BY v.created_at ASC`, feedbackID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	voters := []string{}
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		voters = append(voters, email)
	}
	return voters, rows.Err()
}

func (s *Store) GetAll(ctx context.Context) ([]models.Feedback, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+feedbackColumns+` FROM feedback f
		WHERE f.is_approved = TRUE
		ORDER BY f.votes DESC, f.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Feedback
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		voters, err := s.loadVoters(ctx, s.Pool, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].VotedBy = voters
	}
	return out, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (models.Feedback, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+feedbackColumns+` FROM feedback f WHERE f.id = $1`, id)
	f, err := scanFeedback(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Feedback{}, store.ErrNotFound
		}
		return models.Feedback{}, err
	}
	f.VotedBy, err = s.loadVoters(ctx, s.Pool, id)
	if err != nil {
		return models.Feedback{}, err
	}
	return f, nil
}

func (s *Store) Create(ctx context.Context, nf models.NewFeedback) (models.Feedback, error) {
	var subCategory *string
	if nf.SubCategory != "" {
		subCategory = &nf.SubCategory
	}
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO feedback (title, description, category, sub_category, status, votes, tags, ai_processing_status, is_approved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, '{}', $6, TRUE, NOW(), NOW())
		RETURNING id`,
		nf.Title, nf.Description, nf.Category, subCategory, models.StatusUnderReview, models.AiPending)
	var id string
	if err := row.Scan(&id); err != nil {
		return models.Feedback{}, err
	}
	return s.GetByID(ctx, id)
}

// ToggleVote applies the membership flip and the counter update in one
// transaction. The feedback row is locked first so concurrent toggles on the
// same item serialize, and the counter is recomputed from the ledger rather
// than incremented, which keeps count == |votedBy| even if rows were touched
// out of band.
func (s *Store) ToggleVote(ctx context.Context, feedbackID, userID string) (models.Feedback, bool, error) {
	var casted bool
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		var id string
		err := tx.QueryRow(ctx, `SELECT id FROM feedback WHERE id = $1 FOR UPDATE`, feedbackID).Scan(&id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return store.ErrNotFound
			}
			return err
		}

		var voteID *string
		err = tx.QueryRow(ctx, `SELECT id FROM votes WHERE feedback_id = $1 AND user_id = $2`, feedbackID, userID).Scan(&voteID)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			if _, err := tx.Exec(ctx, `INSERT INTO votes (feedback_id, user_id, created_at) VALUES ($1, $2, NOW())`, feedbackID, userID); err != nil {
				return err
			}
			casted = true
		case err != nil:
			return err
		default:
			if _, err := tx.Exec(ctx, `DELETE FROM votes WHERE id = $1`, *voteID); err != nil {
				return err
			}
			casted = false
		}

		_, err = tx.Exec(ctx, `UPDATE feedback
			SET votes = (SELECT COUNT(*) FROM votes WHERE feedback_id = $1), updated_at = NOW()
			WHERE id = $1`, feedbackID)
		return err
	})
	if err != nil {
		return models.Feedback{}, false, err
	}

	item, err := s.GetByID(ctx, feedbackID)
	if err != nil {
		return models.Feedback{}, false, err
	}
	return item, casted, nil
}

func (s *Store) UpsertUser(ctx context.Context, email string) (string, error) {
	var id string
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO users (email, username, created_at)
		VALUES ($1, split_part($1, '@', 1), NOW())
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id`, email).Scan(&id)
	return id, err
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status models.Status) (models.Feedback, error) {
	tag, err := s.Pool.Exec(ctx, `UPDATE feedback SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return models.Feedback{}, err
	}
	if tag.RowsAffected() == 0 {
		return models.Feedback{}, store.ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *Store) UpdateTags(ctx context.Context, id string, tags []string, taggedAt time.Time) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE feedback
		SET tags = $1, ai_processing_status = $2, ai_tagged_at = $3, updated_at = NOW()
		WHERE id = $4`, tags, models.AiCompleted, taggedAt, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SetAiProcessingStatus(ctx context.Context, id string, status models.AiProcessingStatus) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE feedback SET ai_processing_status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListUntagged(ctx context.Context, limit int) ([]models.Feedback, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+feedbackColumns+` FROM feedback f
		WHERE f.is_approved = TRUE AND f.ai_processing_status = $1
		ORDER BY f.created_at ASC
		LIMIT $2`, models.AiPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Feedback
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) CountUntagged(ctx context.Context) (int, error) {
	var n int
	err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM feedback WHERE is_approved = TRUE AND ai_processing_status = $1`, models.AiPending).Scan(&n)
	return n, err
}

func (s *Store) TaggedByTheme(ctx context.Context) (map[string][]models.Feedback, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+feedbackColumns+` FROM feedback f
		WHERE f.is_approved = TRUE AND f.ai_processing_status = $1 AND array_length(f.tags, 1) > 0
		ORDER BY f.created_at ASC`, models.AiCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grouped := map[string][]models.Feedback{}
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		grouped[f.Theme()] = append(grouped[f.Theme()], f)
	}
	return grouped, rows.Err()
}

func (s *Store) InsertInsight(ctx context.Context, in models.AiInsight) (models.AiInsight, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO ai_insights (theme, insight_summary, priority_score, feedback_count, sample_feedback_ids, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		in.Theme, in.InsightSummary, in.PriorityScore, in.FeedbackCount, in.SampleFeedbackIDs, in.GeneratedAt)
	if err := row.Scan(&in.ID); err != nil {
		return models.AiInsight{}, err
	}
	return in, nil
}

func (s *Store) insightsWhere(ctx context.Context, where string, args ...any) ([]models.AiInsight, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, theme, insight_summary, priority_score, feedback_count, sample_feedback_ids, generated_at, exported_at
		FROM ai_insights `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AiInsight
	for rows.Next() {
		var in models.AiInsight
		if err := rows.Scan(&in.ID, &in.Theme, &in.InsightSummary, &in.PriorityScore, &in.FeedbackCount, &in.SampleFeedbackIDs, &in.GeneratedAt, &in.ExportedAt); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *Store) ListInsights(ctx context.Context) ([]models.AiInsight, error) {
	return s.insightsWhere(ctx, `ORDER BY priority_score DESC, generated_at DESC`)
}

func (s *Store) UnexportedInsights(ctx context.Context) ([]models.AiInsight, error) {
	return s.insightsWhere(ctx, `WHERE exported_at IS NULL ORDER BY generated_at ASC`)
}

func (s *Store) MarkInsightsExported(ctx context.Context, ids []string, exportedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.Pool.Exec(ctx, `UPDATE ai_insights SET exported_at = $1 WHERE id = ANY($2)`, exportedAt, ids)
	return err
}

func (s *Store) StartRun(ctx context.Context, task models.TaskType, triggeredBy string, startedAt time.Time) (string, error) {
	var id string
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO automation_logs (task_type, status, started_at, items_processed, items_failed, triggered_by)
		VALUES ($1, $2, $3, 0, 0, $4)
		RETURNING id`, task, models.RunRunning, startedAt, triggeredBy).Scan(&id)
	return id, err
}

func (s *Store) FinishRun(ctx context.Context, id string, status models.RunStatus, processed, failed int, errMsg string, completedAt time.Time) error {
	_, err := s.Pool.Exec(ctx, `UPDATE automation_logs
		SET status = $1, items_processed = $2, items_failed = $3, error_message = NULLIF($4, ''), completed_at = $5
		WHERE id = $6`, status, processed, failed, errMsg, completedAt, id)
	return err
}

func (s *Store) LatestRun(ctx context.Context, task models.TaskType) (models.AutomationLog, error) {
	row := s.Pool.QueryRow(ctx, `SELECT id, task_type, status, started_at, completed_at, items_processed, items_failed, COALESCE(error_message, ''), triggered_by
		FROM automation_logs WHERE task_type = $1 ORDER BY started_at DESC LIMIT 1`, task)
	var l models.AutomationLog
	err := row.Scan(&l.ID, &l.TaskType, &l.Status, &l.StartedAt, &l.CompletedAt, &l.ItemsProcessed, &l.ItemsFailed, &l.ErrorMessage, &l.TriggeredBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AutomationLog{}, store.ErrNotFound
		}
		return models.AutomationLog{}, err
	}
	return l, nil
}
