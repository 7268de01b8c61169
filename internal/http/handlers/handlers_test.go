package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/feedback-fusion/backend/internal/ai"
	"github.com/feedback-fusion/backend/internal/http/middleware"
	"github.com/feedback-fusion/backend/internal/memdb"
	"github.com/feedback-fusion/backend/internal/models"
	"github.com/feedback-fusion/backend/internal/service"
)

type noopAI struct{}

func (noopAI) GenerateTags(ctx context.Context, title, description string) ai.TagResult {
	return ai.TagResult{Success: true, Tags: []string{"misc"}}
}

func (noopAI) GenerateInsight(ctx context.Context, theme string, items []ai.Item) ai.InsightResult {
	return ai.InsightResult{Success: true, Summary: "ok", Priority: 5}
}

type env struct {
	store  *memdb.Store
	router *gin.Engine
}

func newEnv(t *testing.T, cronSecret, adminKey string) env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := memdb.New()
	h := &Handler{
		Store: s,
		Automation: &service.Automation{
			Store:  s,
			AI:     noopAI{},
			Logger: zerolog.Nop(),
		},
		Taxonomy:  models.DefaultTaxonomy(),
		Validator: validator.New(),
		Logger:    zerolog.Nop(),
	}

	r := gin.New()
	r.GET("/healthz", h.Healthz)
	api := r.Group("/api")
	api.GET("/feedback", h.FeedbackList)
	api.POST("/feedback", h.FeedbackCreate)
	api.POST("/votes", h.VoteToggle)

	cron := api.Group("/cron")
	cron.Use(middleware.CronAuth(cronSecret))
	cron.POST("/ai-tagging", h.CronTagging)

	admin := api.Group("/admin")
	admin.Use(middleware.AdminKey(adminKey))
	admin.GET("/untagged", h.UntaggedCount)
	admin.POST("/automation/:task", h.AutomationTrigger)
	admin.PUT("/feedback/:id/status", h.UpdateStatus)
	admin.PUT("/feedback/:id/tags", h.UpdateTags)

	return env{store: s, router: r}
}

func do(t *testing.T, r *gin.Engine, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, decoded
}

func validSubmission() map[string]any {
	return map[string]any{
		"title":       "Support split payments",
		"description": "Allow customers to split a bill across multiple cards.",
		"category":    "POS",
		"subCategory": "Payments",
	}
}

func TestFeedbackCreateAndList(t *testing.T) {
	e := newEnv(t, "", "")

	w, resp := do(t, e.router, http.MethodPost, "/api/feedback", validSubmission(), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	data := resp["data"].(map[string]any)
	if data["status"] != "Under Review" {
		t.Fatalf("expected Under Review status, got %v", data["status"])
	}
	if data["id"] == "" {
		t.Fatalf("expected an id on the created feedback")
	}

	w, resp = do(t, e.router, http.MethodGet, "/api/feedback", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	items := resp["data"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
}

func TestFeedbackCreateValidation(t *testing.T) {
	e := newEnv(t, "", "")

	cases := []struct {
		name    string
		mutate  func(map[string]any)
		field   string
		message string
	}{
		{"title too short", func(m map[string]any) { m["title"] = "AB" }, "title", "at least 5"},
		{"title too long", func(m map[string]any) { m["title"] = strings.Repeat("x", 101) }, "title", "no more than 100"},
		{"description too short", func(m map[string]any) { m["description"] = "short" }, "description", "at least 10"},
		{"description too long", func(m map[string]any) { m["description"] = strings.Repeat("y", 1001) }, "description", "no more than 1000"},
		{"unknown category", func(m map[string]any) { m["category"] = "Marketing" }, "category", "Unknown category"},
		{"missing subcategory", func(m map[string]any) { delete(m, "subCategory") }, "subCategory", "required"},
		{"unknown subcategory", func(m map[string]any) { m["subCategory"] = "Lasers" }, "subCategory", "Unknown sub-category"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := validSubmission()
			tc.mutate(body)
			w, resp := do(t, e.router, http.MethodPost, "/api/feedback", body, nil)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			details := resp["error"].(map[string]any)["details"].(map[string]any)
			msg, ok := details[tc.field].(string)
			if !ok {
				t.Fatalf("expected a %s error, got %v", tc.field, details)
			}
			if !strings.Contains(msg, tc.message) {
				t.Fatalf("expected %q in %q", tc.message, msg)
			}
		})
	}
}

func TestFeedbackCreateBeepNeedsNoSubCategory(t *testing.T) {
	e := newEnv(t, "", "")
	body := validSubmission()
	body["category"] = "Beep"
	delete(body, "subCategory")

	w, _ := do(t, e.router, http.MethodPost, "/api/feedback", body, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 for Beep without subcategory, got %d: %s", w.Code, w.Body.String())
	}
}

func TestVoteToggleFlow(t *testing.T) {
	e := newEnv(t, "", "")

	w, resp := do(t, e.router, http.MethodPost, "/api/feedback", validSubmission(), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	id := resp["data"].(map[string]any)["id"].(string)

	w, _ = do(t, e.router, http.MethodPost, "/api/votes", map[string]any{"feedbackId": id}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without userId, got %d", w.Code)
	}

	w, _ = do(t, e.router, http.MethodPost, "/api/votes", map[string]any{"userId": "merchant@example.com"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without feedbackId, got %d", w.Code)
	}

	w, _ = do(t, e.router, http.MethodPost, "/api/votes", map[string]any{"feedbackId": "missing", "userId": "merchant@example.com"}, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown feedback, got %d", w.Code)
	}

	vote := map[string]any{"feedbackId": id, "userId": "merchant@example.com"}
	w, resp = do(t, e.router, http.MethodPost, "/api/votes", vote, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := resp["data"].(map[string]any)
	if data["voted"] != true || data["votes"].(float64) != 1 {
		t.Fatalf("expected cast vote, got %v", data)
	}

	w, resp = do(t, e.router, http.MethodPost, "/api/votes", vote, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on second toggle, got %d", w.Code)
	}
	data = resp["data"].(map[string]any)
	if data["voted"] != false || data["votes"].(float64) != 0 {
		t.Fatalf("expected withdrawn vote, got %v", data)
	}
}

func TestCronAuth(t *testing.T) {
	secured := newEnv(t, "topsecret", "")

	w, _ := do(t, secured.router, http.MethodPost, "/api/cron/ai-tagging", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	w, _ = do(t, secured.router, http.MethodPost, "/api/cron/ai-tagging", nil, map[string]string{"Authorization": "Bearer wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}

	w, resp := do(t, secured.router, http.MethodPost, "/api/cron/ai-tagging", nil, map[string]string{"Authorization": "Bearer topsecret"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with the right token, got %d: %s", w.Code, w.Body.String())
	}
	if resp["success"] != true {
		t.Fatalf("expected success envelope, got %v", resp)
	}

	unconfigured := newEnv(t, "", "")
	w, _ = do(t, unconfigured.router, http.MethodPost, "/api/cron/ai-tagging", nil, map[string]string{"Authorization": "Bearer anything"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 with unset secret, got %d", w.Code)
	}
}

func TestAdminKeyGuard(t *testing.T) {
	e := newEnv(t, "", "admin-key")

	w, _ := do(t, e.router, http.MethodGet, "/api/admin/untagged", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without admin key, got %d", w.Code)
	}

	w, resp := do(t, e.router, http.MethodGet, "/api/admin/untagged", nil, map[string]string{"X-Admin-Key": "admin-key"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with admin key, got %d", w.Code)
	}
	if resp["data"].(map[string]any)["count"].(float64) != 0 {
		t.Fatalf("expected count 0, got %v", resp["data"])
	}
}

func TestAdminStatusUpdate(t *testing.T) {
	e := newEnv(t, "", "")

	w, resp := do(t, e.router, http.MethodPost, "/api/feedback", validSubmission(), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	id := resp["data"].(map[string]any)["id"].(string)

	w, _ = do(t, e.router, http.MethodPut, "/api/admin/feedback/"+id+"/status", map[string]any{"status": "Sideways"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", w.Code)
	}

	w, _ = do(t, e.router, http.MethodPut, "/api/admin/feedback/missing/status", map[string]any{"status": "In Progress"}, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown feedback, got %d", w.Code)
	}

	w, resp = do(t, e.router, http.MethodPut, "/api/admin/feedback/"+id+"/status", map[string]any{"status": "In Progress"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp["data"].(map[string]any)["status"] != "In Progress" {
		t.Fatalf("expected updated status, got %v", resp["data"])
	}
}

func TestAdminTagOverride(t *testing.T) {
	e := newEnv(t, "", "")

	w, resp := do(t, e.router, http.MethodPost, "/api/feedback", validSubmission(), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	id := resp["data"].(map[string]any)["id"].(string)

	w, _ = do(t, e.router, http.MethodPut, "/api/admin/feedback/"+id+"/tags", map[string]any{"tags": []string{}}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty tags, got %d", w.Code)
	}

	w, resp = do(t, e.router, http.MethodPut, "/api/admin/feedback/"+id+"/tags", map[string]any{"tags": []string{"payments", "hardware"}}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := resp["data"].(map[string]any)
	tags := data["tags"].([]any)
	if len(tags) != 2 || tags[0] != "payments" {
		t.Fatalf("expected overridden tags, got %v", tags)
	}
	if data["aiProcessingStatus"] != "completed" {
		t.Fatalf("expected completed ai status after manual tagging, got %v", data["aiProcessingStatus"])
	}
}

func TestAutomationTriggerUnknownTask(t *testing.T) {
	e := newEnv(t, "", "")
	w, _ := do(t, e.router, http.MethodPost, "/api/admin/automation/defrag", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown task, got %d", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	e := newEnv(t, "", "")
	w, resp := do(t, e.router, http.MethodGet, "/healthz", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp["status"] != "ok" {
		t.Fatalf("expected ok status, got %v", resp)
	}
}
