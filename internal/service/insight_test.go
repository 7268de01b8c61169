package service

import (
	"strings"
	"testing"
	"time"

	"github.com/feedback-fusion/backend/internal/ai"
)

func TestBuildInsightUsesCollaboratorResult(t *testing.T) {
	items := []ai.Item{
		{ID: "f1", Votes: 4},
		{ID: "f2", Votes: 6},
	}
	res := ai.InsightResult{Success: true, Summary: "Merchants want richer reports.", Priority: 8}

	in := BuildInsight("reports", items, res, time.Now().UTC())
	if in.InsightSummary != res.Summary {
		t.Fatalf("expected collaborator summary, got %q", in.InsightSummary)
	}
	if in.PriorityScore != 8 {
		t.Fatalf("expected priority 8, got %d", in.PriorityScore)
	}
	if in.FeedbackCount != 2 {
		t.Fatalf("expected feedback count 2, got %d", in.FeedbackCount)
	}
}

func TestBuildInsightFallbackOnFailure(t *testing.T) {
	items := []ai.Item{
		{ID: "f1", Votes: 5},
		{ID: "f2", Votes: 7},
	}
	res := ai.InsightResult{Success: false, Err: "upstream 500"}

	in := BuildInsight("payments", items, res, time.Now().UTC())
	if !strings.Contains(in.InsightSummary, "payments") {
		t.Fatalf("fallback summary should name the theme, got %q", in.InsightSummary)
	}
	if !strings.Contains(in.InsightSummary, "2 requests") || !strings.Contains(in.InsightSummary, "12 total votes") {
		t.Fatalf("fallback summary should carry the statistics, got %q", in.InsightSummary)
	}
	// 12 votes over 2 items
	if in.PriorityScore != 6 {
		t.Fatalf("expected fallback priority 6, got %d", in.PriorityScore)
	}
}

func TestBuildInsightPriorityClamped(t *testing.T) {
	hot := []ai.Item{{ID: "f1", Votes: 500}}
	in := BuildInsight("billing", hot, ai.InsightResult{}, time.Now().UTC())
	if in.PriorityScore != 10 {
		t.Fatalf("expected priority clamped to 10, got %d", in.PriorityScore)
	}

	cold := []ai.Item{{ID: "f1", Votes: 0}, {ID: "f2", Votes: 0}}
	in = BuildInsight("billing", cold, ai.InsightResult{}, time.Now().UTC())
	if in.PriorityScore != 1 {
		t.Fatalf("expected priority clamped to 1, got %d", in.PriorityScore)
	}

	in = BuildInsight("billing", hot, ai.InsightResult{Success: true, Summary: "ok", Priority: 42}, time.Now().UTC())
	if in.PriorityScore != 10 {
		t.Fatalf("expected collaborator priority clamped to 10, got %d", in.PriorityScore)
	}
}

func TestBuildInsightSampleIDsCapped(t *testing.T) {
	items := []ai.Item{
		{ID: "f1"}, {ID: "f2"}, {ID: "f3"}, {ID: "f4"}, {ID: "f5"},
	}
	in := BuildInsight("crm", items, ai.InsightResult{Success: true, Summary: "ok", Priority: 5}, time.Now().UTC())
	if len(in.SampleFeedbackIDs) != 3 {
		t.Fatalf("expected 3 sample ids, got %d", len(in.SampleFeedbackIDs))
	}
	if in.SampleFeedbackIDs[0] != "f1" || in.SampleFeedbackIDs[2] != "f3" {
		t.Fatalf("expected the first three items as samples, got %v", in.SampleFeedbackIDs)
	}
	if in.FeedbackCount != 5 {
		t.Fatalf("expected feedback count 5, got %d", in.FeedbackCount)
	}
}
