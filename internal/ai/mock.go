package ai

import (
	"context"
	"fmt"

	"github.com/feedback-fusion/backend/internal/utils"
)

// MockAdapter is a deterministic stand-in used when no API key is
// configured. The same input always yields the same tags, which keeps local
// runs and tests stable.
type MockAdapter struct{}

var mockTagPool = []string{
	"Feature Request", "UI/UX", "Performance", "Integration",
	"Export", "Analytics", "Workflow", "Mobile", "API", "Automation",
}

func (m MockAdapter) GenerateTags(ctx context.Context, title, description string) TagResult {
	h := utils.HashStringToUint64(title + "|" + description)

	count := 2 + int(h%3)
	tags := make([]string, 0, count)
	seen := map[int]struct{}{}
	for i := 0; len(tags) < count && i < len(mockTagPool); i++ {
		idx := int((h / uint64(i*7+1)) % uint64(len(mockTagPool)))
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		tags = append(tags, mockTagPool[idx])
	}
	return TagResult{Success: true, Tags: tags}
}

func (m MockAdapter) GenerateInsight(ctx context.Context, theme string, items []Item) InsightResult {
	totalVotes := 0
	for _, it := range items {
		totalVotes += it.Votes
	}
	priority := 1
	if len(items) > 0 {
		priority = totalVotes / len(items)
	}
	return InsightResult{
		Success:  true,
		Summary:  fmt.Sprintf("Merchants are converging on %s: %d requests with %d combined votes suggest a recurring need worth scoping.", theme, len(items), totalVotes),
		Priority: priority,
	}
}
