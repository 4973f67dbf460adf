package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/postclip/internal/entry"
	"github.com/hpungsan/postclip/internal/errors"
	"github.com/hpungsan/postclip/internal/metrics"
)

const (
	DefaultEndpoint = "https://api.openai.com/v1/chat/completions"
	DefaultModel    = "gpt-4o-mini"

	// Temperature keeps model output low-variance.
	Temperature = 0.2

	// MaxSummaryChars bounds Insights.Summary.
	MaxSummaryChars = 155

	// maxErrorBody bounds how much of a failed response body is logged.
	maxErrorBody = 4096
)

// SystemPrompt pins the four output keys and their constraints.
const SystemPrompt = "You analyze Reddit support feedback for the Quo product team. " +
	"Respond ONLY with JSON containing keys summary, category, sentiment_label, and sentiment_score. " +
	"The summary must be 155 characters or less. " +
	"sentiment_score should be an integer from 0 (very upset) to 100 (very happy). " +
	"Choose clear, specific categories."

// CredentialSource supplies the API key. An empty key means none is configured.
type CredentialSource interface {
	APIKey(ctx context.Context) (string, error)
}

// Input is the post content sent for summarization.
type Input struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Body  string `json:"body"`
}

// Insights are the summary fields merged into an entry.
type Insights struct {
	Summary        string `json:"summary"`
	Category       string `json:"category"`
	SentimentLabel string `json:"sentimentLabel"`
	SentimentScore string `json:"sentimentScore"`
}

// Client calls a chat-completion endpoint. It makes exactly one attempt per call.
type Client struct {
	endpoint    string
	model       string
	credentials CredentialSource
	httpClient  *http.Client
	logger      *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the chat-completion URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithModel overrides the model identifier.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for failed responses.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a Client. The default HTTP client has no timeout.
func NewClient(credentials CredentialSource, opts ...Option) *Client {
	c := &Client{
		endpoint:    DefaultEndpoint,
		model:       DefaultModel,
		credentials: credentials,
		httpClient:  &http.Client{},
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
	Messages       []chatMessage  `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Summarize asks the endpoint for a summary, category, and sentiment of a post.
//
// Errors are ClipErrors: MISSING_CREDENTIAL when no key is configured,
// REQUEST_FAILED for transport faults or non-2xx statuses, and
// MALFORMED_RESPONSE when the model output does not parse.
func (c *Client) Summarize(ctx context.Context, in Input) (*Insights, error) {
	apiKey := ""
	if c.credentials != nil {
		key, err := c.credentials.APIKey(ctx)
		if err != nil {
			c.logger.Warn("failed to read API key", zap.Error(err))
		}
		apiKey = key
	}
	if apiKey == "" {
		return nil, errors.NewMissingCredential()
	}

	payload, err := c.buildRequest(in)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.NewRequestFailed(err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordSummarizeLatency("transport_error", time.Since(start))
		c.logger.Error("summarization request failed", zap.Error(err))
		return nil, errors.NewRequestFailed(err)
	}
	defer resp.Body.Close()
	metrics.RecordSummarizeLatency(statusLabel(resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Error("summarization endpoint returned an error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, errors.NewRequestFailed(fmt.Errorf("status code: %d", resp.StatusCode))
	}

	var envelope chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		c.logger.Error("failed to decode summarization response", zap.Error(err))
		return nil, errors.NewMalformedResponse(err)
	}

	content := ""
	if len(envelope.Choices) > 0 {
		content = envelope.Choices[0].Message.Content
	}

	insights, err := ParseInsights(content)
	if err != nil {
		c.logger.Error("failed to parse model output", zap.String("content", content), zap.Error(err))
		return nil, err
	}
	return insights, nil
}

func (c *Client) buildRequest(in Input) ([]byte, error) {
	var user bytes.Buffer
	enc := json.NewEncoder(&user)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(in); err != nil {
		return nil, err
	}

	return json.Marshal(chatRequest{
		Model:          c.model,
		Temperature:    Temperature,
		ResponseFormat: responseFormat{Type: "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: string(bytes.TrimRight(user.Bytes(), "\n"))},
		},
	})
}

// ParseInsights parses model output into Insights, stripping an optional
// Markdown code fence first.
func ParseInsights(content string) (*Insights, error) {
	cleaned := StripCodeFences(content)

	dec := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	dec.UseNumber()
	var parsed any
	if err := dec.Decode(&parsed); err != nil {
		return nil, errors.NewMalformedResponse(err)
	}
	if dec.More() {
		return nil, errors.NewMalformedResponse(fmt.Errorf("trailing data after JSON value"))
	}
	if parsed == nil {
		return nil, errors.NewMalformedResponse(fmt.Errorf("model output is null"))
	}

	obj, _ := parsed.(map[string]any)
	return &Insights{
		Summary:        TruncateSummary(entry.Stringify(obj["summary"]), MaxSummaryChars),
		Category:       entry.Stringify(obj["category"]),
		SentimentLabel: entry.Stringify(firstPresent(obj, "sentiment_label", "sentimentLabel")),
		SentimentScore: FormatSentimentScore(firstPresent(obj, "sentiment_score", "sentimentScore")),
	}, nil
}

func firstPresent(obj map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func statusLabel(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	}
	return "other"
}
