// Package service runs the three automation jobs: AI tagging, insight
// generation, and export. Each run is logged start-to-finish, tolerates
// per-item failures, and races its work against the caller's deadline.
// Committed per-item writes survive an abandoned run, so every job is safely
// re-runnable.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/feedback-fusion/backend/internal/ai"
	"github.com/feedback-fusion/backend/internal/export"
	"github.com/feedback-fusion/backend/internal/models"
	"github.com/feedback-fusion/backend/internal/store"
)

const (
	defaultBatchSize = 50
	insightThreshold = 2
)

type Automation struct {
	Store     store.Backend
	AI        ai.Adapter
	Exporter  export.Exporter
	Logger    zerolog.Logger
	Clock     clockwork.Clock
	BatchSize int
	// ItemDelay spaces out collaborator calls to respect rate limits.
	ItemDelay time.Duration
}

type TaggingResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

type InsightsResult struct {
	Insights int `json:"insights"`
	Themes   int `json:"themes"`
}

type ExportResult struct {
	FeedbackRows int `json:"feedbackRows"`
	InsightRows  int `json:"insightRows"`
}

func (a *Automation) clock() clockwork.Clock {
	if a.Clock == nil {
		return clockwork.NewRealClock()
	}
	return a.Clock
}

func (a *Automation) batchSize() int {
	if a.BatchSize <= 0 {
		return defaultBatchSize
	}
	return a.BatchSize
}

// pause waits ItemDelay between collaborator calls, returning early when the
// run deadline fires.
func (a *Automation) pause(ctx context.Context) error {
	if a.ItemDelay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-a.clock().After(a.ItemDelay):
		return nil
	}
}

func (a *Automation) finishRun(logID string, status models.RunStatus, processed, failed int, errMsg string) {
	// Run bookkeeping must not inherit a cancelled job context: a timed-out
	// run still gets its failed log row.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Store.FinishRun(ctx, logID, status, processed, failed, errMsg, a.clock().Now().UTC()); err != nil {
		a.Logger.Error().Err(err).Str("log_id", logID).Msg("failed to finish automation log")
	}
}

// RunTagging tags up to BatchSize approved pending items. Items whose
// collaborator call fails keep their pending status and are retried on the
// next run.
func (a *Automation) RunTagging(ctx context.Context, triggeredBy string) (TaggingResult, error) {
	logID, err := a.Store.StartRun(ctx, models.TaskAiTagging, triggeredBy, a.clock().Now().UTC())
	if err != nil {
		return TaggingResult{}, err
	}

	items, err := a.Store.ListUntagged(ctx, a.batchSize())
	if err != nil {
		a.finishRun(logID, models.RunFailed, 0, 0, err.Error())
		return TaggingResult{}, err
	}
	a.Logger.Info().Int("count", len(items)).Str("triggered_by", triggeredBy).Msg("tagging run started")

	var res TaggingResult
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			a.finishRun(logID, models.RunFailed, res.Processed, res.Failed, timeoutMessage(err))
			return res, err
		}

		tagRes := a.AI.GenerateTags(ctx, item.Title, item.Description)
		if tagRes.Success && len(tagRes.Tags) > 0 {
			if err := a.Store.UpdateTags(ctx, item.ID, tagRes.Tags, a.clock().Now().UTC()); err != nil {
				a.Logger.Error().Err(err).Str("feedback_id", item.ID).Msg("failed to store tags")
				res.Failed++
			} else {
				res.Processed++
			}
		} else {
			a.Logger.Warn().Str("feedback_id", item.ID).Str("error", tagRes.Err).Msg("tag generation failed")
			res.Failed++
		}

		if err := a.pause(ctx); err != nil {
			a.finishRun(logID, models.RunFailed, res.Processed, res.Failed, timeoutMessage(err))
			return res, err
		}
	}

	a.finishRun(logID, models.RunCompleted, res.Processed, res.Failed, "")
	a.Logger.Info().Int("processed", res.Processed).Int("failed", res.Failed).Msg("tagging run completed")
	return res, nil
}

// RunInsights groups tagged items by primary tag and generates one insight
// per theme with at least two members. Smaller themes are skipped, not
// failed.
func (a *Automation) RunInsights(ctx context.Context, triggeredBy string) (InsightsResult, error) {
	logID, err := a.Store.StartRun(ctx, models.TaskInsightGeneration, triggeredBy, a.clock().Now().UTC())
	if err != nil {
		return InsightsResult{}, err
	}

	grouped, err := a.Store.TaggedByTheme(ctx)
	if err != nil {
		a.finishRun(logID, models.RunFailed, 0, 0, err.Error())
		return InsightsResult{}, err
	}

	themes := make([]string, 0, len(grouped))
	for theme, members := range grouped {
		if len(members) >= insightThreshold {
			themes = append(themes, theme)
		}
	}
	sort.Strings(themes)
	a.Logger.Info().Int("themes", len(themes)).Str("triggered_by", triggeredBy).Msg("insight run started")

	var res InsightsResult
	for _, theme := range themes {
		if err := ctx.Err(); err != nil {
			a.finishRun(logID, models.RunFailed, res.Insights, 0, timeoutMessage(err))
			return res, err
		}

		items := toItems(grouped[theme])
		aiRes := a.AI.GenerateInsight(ctx, theme, items)
		if !aiRes.Success {
			a.Logger.Warn().Str("theme", theme).Str("error", aiRes.Err).Msg("insight collaborator failed, using fallback")
		}
		insight := BuildInsight(theme, items, aiRes, a.clock().Now().UTC())
		if _, err := a.Store.InsertInsight(ctx, insight); err != nil {
			a.Logger.Error().Err(err).Str("theme", theme).Msg("failed to store insight")
		} else {
			res.Insights++
		}
		res.Themes++

		if err := a.pause(ctx); err != nil {
			a.finishRun(logID, models.RunFailed, res.Insights, 0, timeoutMessage(err))
			return res, err
		}
	}

	a.finishRun(logID, models.RunCompleted, res.Insights, 0, "")
	a.Logger.Info().Int("insights", res.Insights).Int("themes", res.Themes).Msg("insight run completed")
	return res, nil
}

// RunExport hands all approved feedback plus unexported insights to the
// exporter as one batch. Insights are marked exported only after the export
// call fully succeeds.
func (a *Automation) RunExport(ctx context.Context, triggeredBy string) (ExportResult, error) {
	logID, err := a.Store.StartRun(ctx, models.TaskSheetsExport, triggeredBy, a.clock().Now().UTC())
	if err != nil {
		return ExportResult{}, err
	}

	feedback, err := a.Store.GetAll(ctx)
	if err != nil {
		a.finishRun(logID, models.RunFailed, 0, 0, err.Error())
		return ExportResult{}, err
	}
	insights, err := a.Store.UnexportedInsights(ctx)
	if err != nil {
		a.finishRun(logID, models.RunFailed, 0, 0, err.Error())
		return ExportResult{}, err
	}

	if len(feedback) == 0 && len(insights) == 0 {
		a.finishRun(logID, models.RunCompleted, 0, 0, "")
		return ExportResult{}, nil
	}

	if err := a.Exporter.Export(ctx, feedback, insights); err != nil {
		a.finishRun(logID, models.RunFailed, 0, 0, timeoutMessage(err))
		return ExportResult{}, err
	}

	if len(insights) > 0 {
		ids := make([]string, 0, len(insights))
		for _, in := range insights {
			ids = append(ids, in.ID)
		}
		if err := a.Store.MarkInsightsExported(ctx, ids, a.clock().Now().UTC()); err != nil {
			a.finishRun(logID, models.RunFailed, 0, 0, err.Error())
			return ExportResult{}, err
		}
	}

	res := ExportResult{FeedbackRows: len(feedback), InsightRows: len(insights)}
	a.finishRun(logID, models.RunCompleted, len(feedback)+len(insights), 0, "")
	a.Logger.Info().Int("feedback_rows", res.FeedbackRows).Int("insight_rows", res.InsightRows).Msg("export run completed")
	return res, nil
}

// Status summarizes the latest run of every task type.
func (a *Automation) Status(ctx context.Context) (map[models.TaskType]models.AutomationLog, error) {
	out := map[models.TaskType]models.AutomationLog{}
	for _, task := range []models.TaskType{models.TaskAiTagging, models.TaskInsightGeneration, models.TaskSheetsExport} {
		run, err := a.Store.LatestRun(ctx, task)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out[task] = run
	}
	return out, nil
}

func toItems(feedback []models.Feedback) []ai.Item {
	items := make([]ai.Item, 0, len(feedback))
	for _, f := range feedback {
		items = append(items, ai.Item{
			ID:          f.ID,
			Title:       f.Title,
			Description: f.Description,
			Votes:       f.Votes,
		})
	}
	return items
}

func timeoutMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "run deadline exceeded"
	}
	return fmt.Sprintf("%v", err)
}
