package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/yungbote/routineflow-backend/internal/observability"
	"github.com/yungbote/routineflow-backend/internal/platform/logger"
)

// genAIClient calls Gemini directly through the Google GenAI SDK.
type genAIClient struct {
	log    *logger.Logger
	client *genai.Client
	model  string
	temp   float64
}

func NewGenAIClient(ctx context.Context, log *logger.Logger, cfg Config) (Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &genAIClient{
		log:    log.With("client", "GenAIClient"),
		client: client,
		model:  genAIModel(cfg.Model),
		temp:   cfg.Temperature,
	}, nil
}

// genAIModel strips gateway vendor prefixes ("google/gemini-x" -> "gemini-x").
func genAIModel(model string) string {
	model = strings.TrimSpace(model)
	if i := strings.LastIndex(model, "/"); i >= 0 && !strings.HasPrefix(model, "models/") {
		model = model[i+1:]
	}
	if model == "" {
		return "gemini-2.5-flash"
	}
	return model
}

func (c *genAIClient) Provider() string { return ProviderGenAI }

// genAIStatusError adapts genai.APIError to the HTTP status contract used by classify.
type genAIStatusError struct {
	err  genai.APIError
	code int
}

func (e *genAIStatusError) Error() string       { return e.err.Error() }
func (e *genAIStatusError) HTTPStatusCode() int { return e.code }
func (e *genAIStatusError) Unwrap() error       { return e.err }

func (c *genAIClient) Complete(ctx context.Context, req Request) (string, error) {
	model := c.model
	if req.Model != "" {
		model = genAIModel(req.Model)
	}
	temp := c.temp
	if req.Temperature != nil {
		temp = *req.Temperature
	}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Temperature:       genai.Ptr(float32(temp)),
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, model, []*genai.Content{
		genai.NewContentFromText(req.User, genai.RoleUser),
	}, cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			err = &genAIStatusError{err: apiErr, code: apiErr.Code}
		}
		err = classify(err)
		c.log.Error("GenAI request failed", "step", "llm_call", "model", model, "error", err)
	}
	observability.Current().ObserveLLMRequest(ProviderGenAI, model, Outcome(err), time.Since(start))
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
