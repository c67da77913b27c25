package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/remedystack/remedy-engine/internal/cache"
	"github.com/remedystack/remedy-engine/internal/models"
	"github.com/remedystack/remedy-engine/internal/utils"
)

// AnalysisClient calls the external analysis service: one ErrorEvent in,
// one AnalysisResult out. Failures are never retried here; the pipeline run
// aborts and reports.
type AnalysisClient struct {
	baseURL    string
	path       string
	timeout    time.Duration
	cacheTTL   time.Duration
	httpClient *http.Client
	cache      cache.Provider
	latency    *utils.LatencyTracker
	logger     *slog.Logger
}

// NewAnalysisClient constructs a client for the configured analysis service.
// cacheProvider may be a NoopProvider; memoisation is keyed by the error
// signature so recurring errors skip re-analysis.
func NewAnalysisClient(baseURL, path string, timeout, cacheTTL time.Duration, cacheProvider cache.Provider, logger *slog.Logger) *AnalysisClient {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		path:       path,
		timeout:    timeout,
		cacheTTL:   cacheTTL,
		httpClient: &http.Client{},
		cache:      cacheProvider,
		latency:    utils.NewLatencyTracker(512),
		logger:     logger,
	}
}

// Analyze submits the error event and returns the structured analysis.
func (c *AnalysisClient) Analyze(ctx context.Context, event models.ErrorEvent) (models.AnalysisResult, error) {
	const op = "analysis"

	if c.baseURL == "" {
		return models.AnalysisResult{}, fmt.Errorf("analysis service base URL not configured")
	}

	key := cache.AnalysisKey(event.Signature())
	if cached, err := c.cache.Get(ctx, key); err == nil {
		var analysis models.AnalysisResult
		if err := json.Unmarshal(cached, &analysis); err == nil {
			c.logger.Debug("analysis cache hit", slog.String("error_id", event.ID), slog.String("signature", event.Signature()))
			analysis.ErrorID = event.ID
			return analysis, nil
		}
		// Corrupt entry; drop it and fall through to the service.
		_ = c.cache.Del(ctx, key)
	}

	var analysis models.AnalysisResult
	start := time.Now()
	if err := postJSON(ctx, c.httpClient, op, c.baseURL+c.path, c.timeout, event, &analysis); err != nil {
		return models.AnalysisResult{}, err
	}
	c.latency.Observe(time.Since(start))
	c.logger.Debug("analysis service call",
		slog.String("error_id", event.ID),
		slog.Duration("elapsed", time.Since(start)),
		slog.Duration("p95", c.latency.Percentile(95)))
	if analysis.ErrorID == "" {
		analysis.ErrorID = event.ID
	}

	if c.cacheTTL > 0 {
		if data, err := json.Marshal(analysis); err == nil {
			if err := c.cache.Set(ctx, key, data, c.cacheTTL); err != nil {
				c.logger.Warn("cache analysis result", slog.Any("error", err))
			}
		}
	}
	return analysis, nil
}

// PlanClient calls the external planning service: one AnalysisResult in,
// one FixPlan out.
type PlanClient struct {
	baseURL    string
	path       string
	timeout    time.Duration
	httpClient *http.Client
}

// NewPlanClient constructs a client for the configured planning service.
func NewPlanClient(baseURL, path string, timeout time.Duration) *PlanClient {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &PlanClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		path:       path,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// Plan submits the analysis and returns the generated fix plan.
func (c *PlanClient) Plan(ctx context.Context, analysis models.AnalysisResult) (models.FixPlan, error) {
	const op = "planning"

	if c.baseURL == "" {
		return models.FixPlan{}, fmt.Errorf("planning service base URL not configured")
	}

	var plan models.FixPlan
	if err := postJSON(ctx, c.httpClient, op, c.baseURL+c.path, c.timeout, analysis, &plan); err != nil {
		return models.FixPlan{}, err
	}
	if plan.AnalysisID == "" {
		plan.AnalysisID = analysis.ErrorID
	}
	return plan, nil
}

// postJSON performs one request/response exchange against an external
// service and maps failures onto the client error taxonomy.
func postJSON(ctx context.Context, client *http.Client, op, url string, timeout time.Duration, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &TimeoutError{Op: op, Timeout: timeout, Err: err}
		}
		return fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		diagnostic, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return &ServiceError{Op: op, StatusCode: resp.StatusCode, Diagnostic: strings.TrimSpace(string(diagnostic))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ParseError{Op: op, Err: err}
	}
	return nil
}
