// Package lingo is an HTTP client for the Lingo.dev localization engine.
package lingo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrEmptyResponse is returned when the engine answers without a result.
var ErrEmptyResponse = errors.New("lingo: empty response")

// Config configures a Client. Zero values fall back to defaults.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RatePerSec float64
	Burst      int
}

// Client calls the Lingo.dev engine over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
}

// APIError represents a non-2xx engine response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lingo: status %d: %s", e.Status, e.Message)
}

// NewClient constructs an engine client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://engine.lingo.dev"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, cfg.Burst),
		now:        time.Now,
	}
}

type localizeRequest struct {
	Params struct {
		WorkflowID string `json:"workflowId"`
		Fast       bool   `json:"fast"`
	} `json:"params"`
	Locale struct {
		Source string `json:"source"`
		Target string `json:"target"`
	} `json:"locale"`
	Data map[string]string `json:"data"`
}

type localizeResponse struct {
	Data map[string]string `json:"data"`
}

// Localize translates text from source to target locale.
func (c *Client) Localize(ctx context.Context, text, source, target string) (string, error) {
	var body localizeRequest
	body.Params.WorkflowID = fmt.Sprintf("babelchat-%d", c.now().UnixMilli())
	body.Locale.Source = source
	body.Locale.Target = target
	body.Data = map[string]string{"text": text}

	var resp localizeResponse
	if err := c.post(ctx, "/i18n", body, &resp); err != nil {
		return "", err
	}
	translated, ok := resp.Data["text"]
	if !ok {
		return "", ErrEmptyResponse
	}
	return translated, nil
}

type recognizeResponse struct {
	Locale string `json:"locale"`
}

// Recognize returns the locale code the engine detects for text.
func (c *Client) Recognize(ctx context.Context, text string) (string, error) {
	var resp recognizeResponse
	if err := c.post(ctx, "/recognize", map[string]string{"text": text}, &resp); err != nil {
		return "", err
	}
	if resp.Locale == "" {
		return "", ErrEmptyResponse
	}
	return resp.Locale, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("lingo: rate limit wait: %w", err)
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(c.apiKey) != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Error
		if msg == "" {
			msg = errResp.Message
		}
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
