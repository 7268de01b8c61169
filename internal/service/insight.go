package service

import (
	"fmt"
	"time"

	"github.com/feedback-fusion/backend/internal/ai"
	"github.com/feedback-fusion/backend/internal/models"
)

const maxSampleIDs = 3

// BuildInsight turns a theme and its items into exactly one insight. When
// the collaborator failed or returned garbage, a deterministic fallback is
// synthesized from the vote statistics so the theme is never dropped.
func BuildInsight(theme string, items []ai.Item, res ai.InsightResult, now time.Time) models.AiInsight {
	totalVotes := 0
	for _, it := range items {
		totalVotes += it.Votes
	}

	summary := res.Summary
	priority := res.Priority
	if !res.Success || summary == "" {
		summary = fmt.Sprintf(
			"Users are requesting improvements in %s. This theme has %d requests with %d total votes, indicating significant user interest.",
			theme, len(items), totalVotes)
		priority = 0
		if len(items) > 0 {
			priority = totalVotes / len(items)
		}
	}

	samples := make([]string, 0, maxSampleIDs)
	for _, it := range items {
		samples = append(samples, it.ID)
		if len(samples) == maxSampleIDs {
			break
		}
	}

	return models.AiInsight{
		Theme:             theme,
		InsightSummary:    summary,
		PriorityScore:     clampPriority(priority),
		FeedbackCount:     len(items),
		SampleFeedbackIDs: samples,
		GeneratedAt:       now,
	}
}

func clampPriority(p int) int {
	if p < 1 {
		return 1
	}
	if p > 10 {
		return 10
	}
	return p
}
