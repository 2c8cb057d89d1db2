package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultTimeout = 30 * time.Second

	maxTokens   = 1000
	temperature = 0.7

	maxErrorBody = 64 << 10
)

// Config configures a Gateway.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	// Referer and Title are optional attribution headers understood by OpenRouter.
	Referer string
	Title   string
}

// Recorder observes completion outcomes.
type Recorder interface {
	ObserveCompletion(outcome string, elapsed time.Duration)
}

// Gateway performs one non-streaming chat completion per call. It never retries.
type Gateway struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
	recorder   Recorder
}

// NewGateway builds a gateway. recorder may be nil.
func NewGateway(cfg Config, logger *zap.Logger, recorder Recorder) (*Gateway, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrConfigurationMissing
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     logger,
		recorder:   recorder,
	}, nil
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends messages and returns the trimmed text of the first choice.
// Any failure is an *Error; the call is bounded by the configured timeout and by ctx.
func (g *Gateway) Complete(ctx context.Context, messages []Message) (string, error) {
	start := time.Now()
	text, err := g.complete(ctx, messages)
	outcome := "success"
	if err != nil {
		outcome = KindOf(err).String()
		g.logger.Warn("completion failed",
			zap.String("model", g.cfg.Model),
			zap.String("kind", outcome),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
	}
	if g.recorder != nil {
		g.recorder.ObserveCompletion(outcome, time.Since(start))
	}
	return text, err
}

func (g *Gateway) complete(ctx context.Context, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	payload, err := json.Marshal(completionRequest{
		Model:       g.cfg.Model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", &Error{Kind: KindUnexpected, Message: "encoding request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", &Error{Kind: KindUnexpected, Message: "creating request", Err: err}
	}
	g.setHeaders(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", parseError(ctx, resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportError(ctx, err)
	}
	var out completionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &Error{Kind: KindUnexpected, StatusCode: resp.StatusCode, Message: "decoding response", Err: err}
	}
	if len(out.Choices) == 0 {
		return "", &Error{Kind: KindUnexpected, StatusCode: resp.StatusCode, Message: "response has no choices"}
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func (g *Gateway) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", g.cfg.Referer)
	}
	if g.cfg.Title != "" {
		req.Header.Set("X-Title", g.cfg.Title)
	}
}

// parseError builds a provider error, preferring the JSON {"error":{"message"}} detail.
func parseError(ctx context.Context, resp *http.Response) error {
	fallback := fmt.Sprintf("HTTP %d", resp.StatusCode)
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		if ctx.Err() != nil {
			return transportError(ctx, err)
		}
		return &Error{Kind: KindProvider, StatusCode: resp.StatusCode, Message: fallback, Err: err}
	}

	message := fallback
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var errResp errorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
			message = errResp.Error.Message
		}
	}
	return &Error{Kind: KindProvider, StatusCode: resp.StatusCode, Message: message}
}

// transportError classifies failures that happen before a complete response is read.
func transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: "no response within the time limit", Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Message: "no response within the time limit", Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindUnexpected, Message: "request canceled", Err: err}
	}
	return &Error{Kind: KindConnection, Message: "could not reach completion endpoint", Err: err}
}
