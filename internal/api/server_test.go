package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/remedystack/remedy-engine/internal/models"
	"github.com/remedystack/remedy-engine/internal/orchestrator"
)

type fakeEngine struct {
	submitErr error
	events    []models.ErrorEvent
	status    models.StatusSnapshot
}

func (f *fakeEngine) Submit(event models.ErrorEvent) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEngine) Status() models.StatusSnapshot { return f.status }

type fakeReviews struct {
	items      []models.ReviewQueueItem
	resolveErr error
	resolved   []string
}

func (f *fakeReviews) ListPending(_ context.Context, limit int) ([]models.ReviewQueueItem, error) {
	if limit > 0 && limit < len(f.items) {
		return f.items[:limit], nil
	}
	return f.items, nil
}

func (f *fakeReviews) MarkResolved(_ context.Context, id string) error {
	if f.resolveErr != nil {
		return f.resolveErr
	}
	f.resolved = append(f.resolved, id)
	return nil
}

func newTestServer(engine *fakeEngine) *httptest.Server {
	return newTestServerWithReviews(engine, &fakeReviews{})
}

func newTestServerWithReviews(engine *fakeEngine, reviews ReviewStore) *httptest.Server {
	srv := NewServer(":0", engine, reviews, slog.Default())
	return httptest.NewServer(srv.Handler())
}

func TestSubmitAccepted(t *testing.T) {
	engine := &fakeEngine{}
	ts := newTestServer(engine)
	defer ts.Close()

	body := `{"source":"ci_pipeline","severity":"high","type":"TypeError","raw_error":"TypeError: boom"}`
	resp, err := http.Post(ts.URL+"/api/v1/errors", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ID == "" || out.Status != "queued" {
		t.Fatalf("unexpected response: %+v", out)
	}
	if len(engine.events) != 1 {
		t.Fatalf("expected 1 submitted event, got %d", len(engine.events))
	}
	if engine.events[0].ID != out.ID {
		t.Fatalf("response ID must match submitted event ID")
	}
	if engine.events[0].DetectedAt.IsZero() {
		t.Fatalf("detected_at must be stamped when absent")
	}
}

func TestSubmitDuplicateConflict(t *testing.T) {
	engine := &fakeEngine{submitErr: orchestrator.ErrDuplicate}
	ts := newTestServer(engine)
	defer ts.Close()

	body := `{"id":"err-1","type":"TypeError","raw_error":"boom"}`
	resp, err := http.Post(ts.URL+"/api/v1/errors", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestSubmitRejectsEmptyPayload(t *testing.T) {
	engine := &fakeEngine{}
	ts := newTestServer(engine)
	defer ts.Close()

	for _, body := range []string{`{`, `{"source":"manual"}`} {
		resp, err := http.Post(ts.URL+"/api/v1/errors", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, resp.StatusCode)
		}
	}
	if len(engine.events) != 0 {
		t.Fatalf("invalid payloads must not reach the engine")
	}
}

func TestSubmitAfterShutdownUnavailable(t *testing.T) {
	engine := &fakeEngine{submitErr: orchestrator.ErrNotAccepting}
	ts := newTestServer(engine)
	defer ts.Close()

	body := `{"type":"TypeError","raw_error":"boom"}`
	resp, err := http.Post(ts.URL+"/api/v1/errors", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestStatusSnapshot(t *testing.T) {
	engine := &fakeEngine{status: models.StatusSnapshot{
		Running:        true,
		QueueSize:      3,
		ActiveAttempts: 1,
		IntakeReady:    true,
	}}
	ts := newTestServer(engine)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var got models.StatusSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != engine.status {
		t.Fatalf("expected %+v, got %+v", engine.status, got)
	}
}

func TestListReviews(t *testing.T) {
	reviews := &fakeReviews{items: []models.ReviewQueueItem{
		{ID: "r1", Priority: 9},
		{ID: "r2", Priority: 5},
	}}
	ts := newTestServerWithReviews(&fakeEngine{}, reviews)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/reviews?limit=1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var got []models.ReviewQueueItem
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].ID != "r1" {
		t.Fatalf("unexpected items: %+v", got)
	}
}

func TestListReviewsRejectsBadLimit(t *testing.T) {
	ts := newTestServer(&fakeEngine{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/reviews?limit=abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestResolveReview(t *testing.T) {
	reviews := &fakeReviews{}
	ts := newTestServerWithReviews(&fakeEngine{}, reviews)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/v1/reviews/r1/resolve", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(reviews.resolved) != 1 || reviews.resolved[0] != "r1" {
		t.Fatalf("expected r1 resolved, got %v", reviews.resolved)
	}
}

func TestResolveReviewConflict(t *testing.T) {
	reviews := &fakeReviews{resolveErr: errors.New("review item r1 not pending")}
	ts := newTestServerWithReviews(&fakeEngine{}, reviews)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/v1/reviews/r1/resolve", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(&fakeEngine{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
