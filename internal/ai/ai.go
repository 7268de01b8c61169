package ai

import "context"

// Item carries the feedback fields the insight collaborator needs.
type Item struct {
	ID          string
	Title       string
	Description string
	Votes       int
}

// TagResult never signals failure by panicking or by error return; Success
// is the contract.
type TagResult struct {
	Success bool
	Tags    []string
	Err     string
}

type InsightResult struct {
	Success  bool
	Summary  string
	Priority int
	Err      string
}

type Adapter interface {
	GenerateTags(ctx context.Context, title, description string) TagResult
	GenerateInsight(ctx context.Context, theme string, items []Item) InsightResult
}
