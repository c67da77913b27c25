package clients

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/remedystack/remedy-engine/internal/cache"
	"github.com/remedystack/remedy-engine/internal/models"
)

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return v, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryCache) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memoryCache) Close() error { return nil }

func sampleEvent() models.ErrorEvent {
	return models.ErrorEvent{
		ID:       "err-1",
		Source:   "ci_cd",
		Severity: models.SeverityHigh,
		Type:     "compilation",
		Context:  models.ErrorContext{Repository: "payments", File: "src/routes/payments.ts"},
		RawError: "Module 'stripe' not found",
	}
}

func TestAnalyzeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var event models.ErrorEvent
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(models.AnalysisResult{
			ErrorID:         event.ID,
			RootCause:       "missing dependency",
			ConfidenceScore: 0.9,
		})
	}))
	defer server.Close()

	client := NewAnalysisClient(server.URL, "/analyze", time.Minute, 0, nil, nil)
	analysis, err := client.Analyze(context.Background(), sampleEvent())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if analysis.RootCause != "missing dependency" {
		t.Fatalf("unexpected root cause %q", analysis.RootCause)
	}
}

func TestAnalyzeServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model backend unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewAnalysisClient(server.URL, "/analyze", time.Minute, 0, nil, nil)
	_, err := client.Analyze(context.Background(), sampleEvent())

	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected ServiceError, got %v", err)
	}
	if svcErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", svcErr.StatusCode)
	}
	if svcErr.Diagnostic != "model backend unavailable" {
		t.Fatalf("expected diagnostic output, got %q", svcErr.Diagnostic)
	}
}

func TestAnalyzeParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer server.Close()

	client := NewAnalysisClient(server.URL, "/analyze", time.Minute, 0, nil, nil)
	_, err := client.Analyze(context.Background(), sampleEvent())

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestAnalyzeTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server notices the client disconnect and
		// cancels the request context; otherwise server.Close deadlocks.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewAnalysisClient(server.URL, "/analyze", 50*time.Millisecond, 0, nil, nil)
	_, err := client.Analyze(context.Background(), sampleEvent())

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
}

func TestAnalyzeCacheHitSkipsService(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(models.AnalysisResult{RootCause: "missing dependency", ConfidenceScore: 0.9})
	}))
	defer server.Close()

	client := NewAnalysisClient(server.URL, "/analyze", time.Minute, time.Minute, newMemoryCache(), nil)

	if _, err := client.Analyze(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("first analyze: %v", err)
	}
	// Same signature, different event id.
	second := sampleEvent()
	second.ID = "err-2"
	analysis, err := client.Analyze(context.Background(), second)
	if err != nil {
		t.Fatalf("second analyze: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected single service call, got %d", calls)
	}
	if analysis.ErrorID != "err-2" {
		t.Fatalf("cached analysis must be rebound to the new event id, got %s", analysis.ErrorID)
	}
}

func TestPlanSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.FixPlan{
			AnalysisID: "err-1",
			Strategy:   models.StrategyAutomated,
			Actions:    []models.Action{{Type: models.ActionDepUpdate, PackageManager: "npm", Packages: []string{"stripe"}}},
		})
	}))
	defer server.Close()

	client := NewPlanClient(server.URL, "/plan", time.Minute)
	plan, err := client.Plan(context.Background(), models.AnalysisResult{ErrorID: "err-1"})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Strategy != models.StrategyAutomated {
		t.Fatalf("unexpected strategy %s", plan.Strategy)
	}
	if len(plan.Actions) != 1 || plan.Actions[0].Type != models.ActionDepUpdate {
		t.Fatalf("unexpected actions %+v", plan.Actions)
	}
}

func TestPlanServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "planner crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewPlanClient(server.URL, "/plan", time.Minute)
	_, err := client.Plan(context.Background(), models.AnalysisResult{ErrorID: "err-1"})

	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected ServiceError, got %v", err)
	}
	if svcErr.Op != "planning" {
		t.Fatalf("expected planning op, got %s", svcErr.Op)
	}
}
