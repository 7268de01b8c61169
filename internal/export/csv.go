package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/feedback-fusion/backend/internal/models"
)

var feedbackHeaders = []string{
	"ID", "Title", "Description", "Category", "Sub-category", "Status",
	"Votes", "Submitted At", "Updated At", "Is Approved",
	"Moderated At", "Moderated By", "Admin Notes", "Tags", "Voted By",
}

var insightHeaders = []string{
	"Theme", "Insight Summary", "Priority Score", "Feedback Count",
	"Sample Feedback IDs", "Generated At",
}

// CSVExporter writes the batch to timestamped CSV files in Dir. Both files
// are written to temp paths first and renamed only when complete, so a
// partial failure leaves no half-written exports behind.
type CSVExporter struct {
	Dir string
}

func (e CSVExporter) Export(ctx context.Context, feedback []models.Feedback, insights []models.AiInsight) error {
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return err
	}
	stamp := time.Now().UTC().Format("20060102-150405")

	feedbackRows := make([][]string, 0, len(feedback))
	for _, f := range feedback {
		feedbackRows = append(feedbackRows, feedbackRow(f))
	}
	insightRows := make([][]string, 0, len(insights))
	for _, in := range insights {
		insightRows = append(insightRows, insightRow(in))
	}

	if err := writeCSV(filepath.Join(e.Dir, "feedback-"+stamp+".csv"), feedbackHeaders, feedbackRows); err != nil {
		return fmt.Errorf("write feedback export: %w", err)
	}
	if err := writeCSV(filepath.Join(e.Dir, "insights-"+stamp+".csv"), insightHeaders, insightRows); err != nil {
		return fmt.Errorf("write insights export: %w", err)
	}
	return nil
}

func feedbackRow(f models.Feedback) []string {
	return []string{
		f.ID,
		f.Title,
		f.Description,
		f.Category,
		f.SubCategory,
		string(f.Status),
		strconv.Itoa(f.Votes),
		f.CreatedAt.UTC().Format(time.RFC3339),
		f.UpdatedAt.UTC().Format(time.RFC3339),
		strconv.FormatBool(f.IsApproved),
		formatTimePtr(f.ModeratedAt),
		f.ModeratedBy,
		f.AdminNotes,
		strings.Join(f.Tags, ", "),
		strings.Join(f.VotedBy, ","),
	}
}

func insightRow(in models.AiInsight) []string {
	return []string{
		in.Theme,
		in.InsightSummary,
		strconv.Itoa(in.PriorityScore),
		strconv.Itoa(in.FeedbackCount),
		strings.Join(in.SampleFeedbackIDs, ","),
		in.GeneratedAt.UTC().Format(time.RFC3339),
	}
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func writeCSV(path string, headers []string, rows [][]string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	writeErr := w.Write(headers)
	for _, row := range rows {
		if writeErr != nil {
			break
		}
		writeErr = w.Write(row)
	}
	w.Flush()
	if writeErr == nil {
		writeErr = w.Error()
	}
	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		_ = os.Remove(tmp)
		return writeErr
	}
	return os.Rename(tmp, path)
}
