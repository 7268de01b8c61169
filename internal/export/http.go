package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/feedback-fusion/backend/internal/models"
)

// HTTPExporter posts the batch as one JSON document to a webhook endpoint
// (a sheet-sync bridge, typically).
type HTTPExporter struct {
	URL    string
	Client *http.Client
}

type exportPayload struct {
	Feedback   []models.Feedback  `json:"feedback"`
	Insights   []models.AiInsight `json:"insights"`
	ExportedAt time.Time          `json:"exportedAt"`
}

func (e HTTPExporter) Export(ctx context.Context, feedback []models.Feedback, insights []models.AiInsight) error {
	client := e.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	b, err := json.Marshal(exportPayload{
		Feedback:   feedback,
		Insights:   insights,
		ExportedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("export endpoint returned %s", resp.Status)
	}
	return nil
}
