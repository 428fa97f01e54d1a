package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/routineflow-backend/internal/observability"
	"github.com/yungbote/routineflow-backend/internal/pkg/httpx"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

// openAIClient talks to any OpenAI-compatible /v1/chat/completions gateway.
type openAIClient struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	temp       float64
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
}

func NewOpenAIClient(log *logger.Logger, cfg Config) (Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("missing LLM_BASE_URL")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("missing LLM_MODEL")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &openAIClient{
		log:        log.With("client", "OpenAIClient"),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		temp:       cfg.Temperature,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: retries,
		baseDelay:  time.Second,
	}, nil
}

func (c *openAIClient) Provider() string { return ProviderOpenAI }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    *float64       `json:"temperature,omitempty"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type openAIHTTPError struct {
	StatusCode int
	Body       string
}

func (e *openAIHTTPError) Error() string {
	body := e.Body
	if len(body) > 512 {
		body = body[:512]
	}
	return fmt.Sprintf("llm http %d: %s", e.StatusCode, body)
}

func (e *openAIHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *openAIClient) Complete(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	temp := c.temp
	if req.Temperature != nil {
		temp = *req.Temperature
	}
	body := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Temperature: &temp,
	}
	if req.JSON {
		body.ResponseFormat = map[string]any{"type": "json_object"}
	}

	start := time.Now()
	var resp chatResponse
	err := c.do(ctx, "/v1/chat/completions", body, &resp)
	err = classify(err)
	observability.Current().ObserveLLMRequest(ProviderOpenAI, model, Outcome(err), time.Since(start))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *openAIClient) doOnce(ctx context.Context, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &openAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

// do retries transport errors, timeouts and 5xx with exponential backoff. 429 and 402 are
// surfaced immediately so the caller can report them.
func (c *openAIClient) do(ctx context.Context, path string, body any, out any) error {
	backoff := c.baseDelay
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		resp, raw, err := c.doOnce(ctx, path, body)
		if err == nil {
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("llm decode error: %w", uErr)
			}
			return nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			c.log.Error("LLM request failed", "step", "llm_call", "path", path, "attempt", attempt+1, "status", httpx.StatusCode(err), "error", err)
			return err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, maxRetrySleep))
		c.log.Warn("LLM request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if err := httpx.SleepCtx(ctx, sleepFor); err != nil {
			return err
		}
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}
