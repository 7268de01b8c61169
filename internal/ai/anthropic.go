package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const maxTags = 4

const tagSystemPrompt = `You analyze merchant feature requests and answer with strict JSON only, no markdown fences, no prose.`

const insightSystemPrompt = `You analyze groups of merchant feature requests and answer with strict JSON only, no markdown fences, no prose.`

// AnthropicAdapter generates tags and insights through the Anthropic
// Messages API.
type AnthropicAdapter struct {
	APIKey string
	Model  string
}

func (a AnthropicAdapter) client() anthropic.Client {
	return anthropic.NewClient(option.WithAPIKey(a.APIKey))
}

func (a AnthropicAdapter) ask(ctx context.Context, system, user string) (string, error) {
	client := a.client()
	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.Model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", err
	}
	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in response")
}

func (a AnthropicAdapter) GenerateTags(ctx context.Context, title, description string) TagResult {
	prompt := fmt.Sprintf(`Analyze this feedback and generate 2-4 relevant tags that categorize the request.

Title: %q
Description: %q

Use these tags when relevant: UI/UX, Performance, Feature Request, Bug Fix, Integration, Mobile, Desktop, API, Security, Analytics, Workflow, Automation, Export, Admin, User Management.
Create new tags only if none fit. Tags are 1-3 words. Focus on the primary purpose.

Respond with a JSON array of strings, e.g. ["Feature Request", "Export"].`, title, description)

	text, err := a.ask(ctx, tagSystemPrompt, prompt)
	if err != nil {
		return TagResult{Err: err.Error()}
	}

	tags, err := parseTags(text)
	if err != nil {
		return TagResult{Err: err.Error()}
	}
	return TagResult{Success: true, Tags: tags}
}

func (a AnthropicAdapter) GenerateInsight(ctx context.Context, theme string, items []Item) InsightResult {
	totalVotes := 0
	var lines []string
	for i, it := range items {
		desc := it.Description
		if len(desc) > 200 {
			desc = desc[:200]
		}
		lines = append(lines, fmt.Sprintf("%d. %q (%d votes)\n   %s", i+1, it.Title, it.Votes, desc))
		totalVotes += it.Votes
	}

	prompt := fmt.Sprintf(`Analyze this group of feature requests and generate a strategic insight.

Theme: %q
Total feedback items: %d
Total votes: %d

Feedback:
%s

Generate ONE concise insight (2-3 sentences) identifying the core user need, and a priority score from 1-10 based on vote count, frequency, and strategic importance.

Respond with JSON: {"insight": "...", "priorityScore": 7}`, theme, len(items), totalVotes, strings.Join(lines, "\n\n"))

	text, err := a.ask(ctx, insightSystemPrompt, prompt)
	if err != nil {
		return InsightResult{Err: err.Error()}
	}

	var parsed struct {
		Insight       string `json:"insight"`
		PriorityScore int    `json:"priorityScore"`
	}
	if err := json.Unmarshal([]byte(stripFences(text)), &parsed); err != nil {
		return InsightResult{Err: fmt.Sprintf("unparseable insight response: %v", err)}
	}
	if strings.TrimSpace(parsed.Insight) == "" {
		return InsightResult{Err: "empty insight in response"}
	}
	return InsightResult{Success: true, Summary: parsed.Insight, Priority: parsed.PriorityScore}
}

var quotedRe = regexp.MustCompile(`"([^"]+)"`)

func stripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

// parseTags accepts a JSON array; when the model wraps or mangles it, quoted
// strings are salvaged instead of failing the whole item.
func parseTags(text string) ([]string, error) {
	var tags []string
	if err := json.Unmarshal([]byte(stripFences(text)), &tags); err != nil {
		for _, m := range quotedRe.FindAllStringSubmatch(text, -1) {
			tags = append(tags, m[1])
		}
		if len(tags) == 0 {
			return nil, fmt.Errorf("unparseable tag response")
		}
	}

	out := make([]string, 0, maxTags)
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, t)
		if len(out) == maxTags {
			break
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable tags in response")
	}
	return out, nil
}
