// Package ai talks to the Gemini generateContent REST API: the
// recommendation chat, the daily tip, the proactive suggestion and the
// journal analysis.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aquemenida/caliope-ai-studio/internal/client/catalog"
	"github.com/aquemenida/caliope-ai-studio/internal/common"
	"github.com/aquemenida/caliope-ai-studio/internal/logging"
)

const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel      = "gemini-2.5-flash"
	DefaultMaxRetries = 3
)

// maxResponseBytes bounds one generateContent reply.
var maxResponseBytes int64 = 4 << 20

type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxRetries int
	HTTPClient *http.Client
}

type Gemini struct {
	apiKey     string
	model      string
	baseURL    string
	maxRetries int
	backoff    time.Duration
	http       *http.Client
	catalog    *catalog.Catalog
	logger     logging.Logger
}

func NewGemini(cfg Config, cat *catalog.Catalog, l logging.Logger) *Gemini {
	g := &Gemini{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxRetries: cfg.MaxRetries,
		backoff:    500 * time.Millisecond,
		http:       cfg.HTTPClient,
		catalog:    cat,
		logger:     l.With("module", "gemini"),
	}
	if g.model == "" {
		g.model = DefaultModel
	}
	if g.baseURL == "" {
		g.baseURL = DefaultBaseURL
	}
	if g.maxRetries <= 0 {
		g.maxRetries = DefaultMaxRetries
	}
	if g.http == nil {
		g.http = &http.Client{Timeout: 60 * time.Second}
	}
	return g
}

// Enabled reports whether an API key is configured.
func (g *Gemini) Enabled() bool { return g.apiKey != "" }

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature      *float64       `json:"temperature,omitempty"`
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type generateRequest struct {
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Contents          []content         `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (r generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String())
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("gemini http %d: %s", e.StatusCode, e.Body)
}

func retryable(err error) bool {
	var he *httpError
	if errors.As(err, &he) {
		return he.StatusCode == http.StatusTooManyRequests || he.StatusCode >= 500
	}
	return false
}

func temperature(v float64) *float64 { return &v }

func (g *Gemini) doOnce(ctx context.Context, body []byte) (*generateResponse, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > maxResponseBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", maxResponseBytes)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// generate sends one request, retrying 429 and 5xx answers with
// exponential backoff. The returned text is never empty.
func (g *Gemini) generate(ctx context.Context, req generateRequest) (string, error) {
	if !g.Enabled() {
		return "", fmt.Errorf("gemini api key not configured: %w", common.ErrBackendUnavailable)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	backoff := g.backoff
	for attempt := 0; ; attempt++ {
		resp, err := g.doOnce(ctx, body)
		if err == nil {
			text := resp.text()
			if text == "" {
				return "", fmt.Errorf("%w: empty gemini response", common.ErrUpstreamFailure)
			}
			return text, nil
		}
		if ctx.Err() != nil || !retryable(err) || attempt >= g.maxRetries {
			return "", fmt.Errorf("%w: %v", common.ErrUpstreamFailure, err)
		}

		g.logger.Warn(ctx, "gemini request retrying", "attempt", attempt+1, "sleep", backoff.String(), "error", err)
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", common.ErrUpstreamFailure, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
