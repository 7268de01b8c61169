package models

import "time"

type Status string

const (
	StatusUnderReview Status = "Under Review"
	StatusInProgress  Status = "In Progress"
	StatusCompleted   Status = "Completed"
	StatusDeclined    Status = "Declined"
)

func ValidStatus(s Status) bool {
	switch s {
	case StatusUnderReview, StatusInProgress, StatusCompleted, StatusDeclined:
		return true
	}
	return false
}

type AiProcessingStatus string

const (
	AiPending    AiProcessingStatus = "pending"
	AiProcessing AiProcessingStatus = "processing"
	AiCompleted  AiProcessingStatus = "completed"
	AiFailed     AiProcessingStatus = "failed"
)

type TaskType string

const (
	TaskAiTagging         TaskType = "ai_tagging"
	TaskInsightGeneration TaskType = "insight_generation"
	TaskSheetsExport      TaskType = "sheets_export"
)

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

type Feedback struct {
	ID                 string             `json:"id"`
	Title              string             `json:"title"`
	Description        string             `json:"description"`
	Category           string             `json:"category"`
	SubCategory        string             `json:"subCategory,omitempty"`
	Status             Status             `json:"status"`
	Votes              int                `json:"votes"`
	VotedBy            []string           `json:"votedBy"`
	Tags               []string           `json:"tags"`
	AiProcessingStatus AiProcessingStatus `json:"aiProcessingStatus"`
	AiTaggedAt         *time.Time         `json:"aiTaggedAt,omitempty"`
	IsApproved         bool               `json:"isApproved"`
	ModeratedAt        *time.Time         `json:"moderatedAt,omitempty"`
	ModeratedBy        string             `json:"moderatedBy,omitempty"`
	AdminNotes         string             `json:"adminNotes,omitempty"`
	CreatedAt          time.Time          `json:"submittedAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// Theme returns the grouping key used for insight generation: the item's
// primary (first) tag. Empty for untagged items.
func (f Feedback) Theme() string {
	if len(f.Tags) == 0 {
		return ""
	}
	return f.Tags[0]
}

type Vote struct {
	UserID     string    `json:"userId"`
	FeedbackID string    `json:"feedbackId"`
	CreatedAt  time.Time `json:"createdAt"`
}

type AiInsight struct {
	ID                string     `json:"id"`
	Theme             string     `json:"theme"`
	InsightSummary    string     `json:"insightSummary"`
	PriorityScore     int        `json:"priorityScore"`
	FeedbackCount     int        `json:"feedbackCount"`
	SampleFeedbackIDs []string   `json:"sampleFeedbackIds"`
	GeneratedAt       time.Time  `json:"generatedAt"`
	ExportedAt        *time.Time `json:"exportedAt,omitempty"`
}

type AutomationLog struct {
	ID             string     `json:"id"`
	TaskType       TaskType   `json:"taskType"`
	Status         RunStatus  `json:"status"`
	StartedAt      time.Time  `json:"startedAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	ItemsProcessed int        `json:"itemsProcessed"`
	ItemsFailed    int        `json:"itemsFailed"`
	ErrorMessage   string     `json:"errorMessage,omitempty"`
	TriggeredBy    string     `json:"triggeredBy"`
}

// NewFeedback is a validated submission payload.
type NewFeedback struct {
	Title       string
	Description string
	Category    string
	SubCategory string
	SubmittedBy string
}
