package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yukikurage/taskgenie-api/internal/constants"
	"github.com/yukikurage/taskgenie-api/internal/models"
	"go.uber.org/zap"
)

// NLPGateway wraps the external classification and breakdown capability.
// Implementations never return an error: on any failure they return the
// fallback value so task creation is never blocked by the AI layer.
type NLPGateway interface {
	Classify(ctx context.Context, text string) ClassifyResult
	Breakdown(ctx context.Context, text string) BreakdownResult
}

// ClassifyResult is the classification of a task's text. Fields may be empty
// when the remote service omits them.
type ClassifyResult struct {
	Category    models.TaskCategory `json:"category"`
	Priority    models.TaskPriority `json:"priority"`
	Suggestions []string            `json:"suggestions"`
}

// BreakdownResult splits free text into subtasks and suggestions.
type BreakdownResult struct {
	Subtasks    []models.Subtask `json:"subtasks"`
	Suggestions []string         `json:"suggestions"`
}

func FallbackClassification() ClassifyResult {
	return ClassifyResult{
		Category:    models.CategoryOther,
		Priority:    models.PriorityMedium,
		Suggestions: []string{},
	}
}

func FallbackBreakdown() BreakdownResult {
	return BreakdownResult{
		Subtasks:    []models.Subtask{},
		Suggestions: []string{},
	}
}

// normalize drops untitled subtasks and replaces nil slices with empty ones.
func (r BreakdownResult) normalize() BreakdownResult {
	subtasks := make([]models.Subtask, 0, len(r.Subtasks))
	for _, st := range r.Subtasks {
		st.Title = strings.TrimSpace(st.Title)
		if st.Title != "" {
			subtasks = append(subtasks, st)
		}
	}
	r.Subtasks = subtasks
	if r.Suggestions == nil {
		r.Suggestions = []string{}
	}
	return r
}

// HTTPNLPGateway calls the NLP service over HTTP. One attempt per call, no retry.
type HTTPNLPGateway struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

// NewHTTPNLPGateway creates a gateway for the service at baseURL.
func NewHTTPNLPGateway(baseURL string, timeout time.Duration, log *zap.Logger) *HTTPNLPGateway {
	if timeout <= 0 {
		timeout = constants.DefaultNLPTimeout
	}
	return &HTTPNLPGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.Named("nlp"),
	}
}

// Classify posts text to the classify endpoint
func (g *HTTPNLPGateway) Classify(ctx context.Context, text string) ClassifyResult {
	var result ClassifyResult
	if err := g.post(ctx, constants.NLPClassifyPath, text, &result); err != nil {
		g.log.Warn("nlp classify failed, using fallback", zap.Error(err))
		return FallbackClassification()
	}
	return result
}

// Breakdown posts text to the breakdown endpoint
func (g *HTTPNLPGateway) Breakdown(ctx context.Context, text string) BreakdownResult {
	var result BreakdownResult
	if err := g.post(ctx, constants.NLPBreakdownPath, text, &result); err != nil {
		g.log.Warn("nlp breakdown failed, using fallback", zap.Error(err))
		return FallbackBreakdown()
	}
	return result.normalize()
}

func (g *HTTPNLPGateway) post(ctx context.Context, path, text string, out interface{}) error {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("post %s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// StaticGateway always answers with the fallback values. Used when AI is disabled.
type StaticGateway struct{}

func (StaticGateway) Classify(context.Context, string) ClassifyResult {
	return FallbackClassification()
}

func (StaticGateway) Breakdown(context.Context, string) BreakdownResult {
	return FallbackBreakdown()
}
