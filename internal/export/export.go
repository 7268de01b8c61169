// Package export hands approved feedback and fresh insights to an external
// sink as one all-or-nothing batch.
package export

import (
	"context"

	"github.com/feedback-fusion/backend/internal/models"
)

type Exporter interface {
	// Export delivers the whole batch or fails; callers only mark insights
	// exported after a nil return.
	Export(ctx context.Context, feedback []models.Feedback, insights []models.AiInsight) error
}
