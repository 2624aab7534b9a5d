// Package parser turns free-text meal descriptions into structured nutrition
// items using an OpenAI-compatible chat completion endpoint.
//
// Parse never returns a Go error. Every failure is reported through the
// Error and Suggestion fields of the returned response, with an empty Foods
// list, so callers branch on data only.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"mcp-food-log/internal/logging"
	"mcp-food-log/internal/models"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultModel       = "gpt-4o-mini"
	defaultTemperature = 0.3
	defaultMaxTokens   = 1000
	defaultTimeout     = 60 * time.Second

	// maxErrorBody caps how much of a failed response body is logged.
	maxErrorBody = 512
)

// Config configures a Client.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	// RateLimit is requests per second; 0 disables throttling.
	RateLimit float64
	Burst     int
	// HTTPClient overrides the default client. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client calls the completion endpoint once per Parse. There is no retry.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	limiter     *rate.Limiter
	logger      *logging.Logger
}

func NewClient(cfg Config, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		limiter:     limiter,
		logger:      logger.Named("parser"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Parse analyzes a free-text description such as "6 oz chicken breast and an apple".
func (c *Client) Parse(ctx context.Context, input string) *models.AIFoodResponse {
	if c.apiKey == "" {
		return failure(errNotConfigured, sugNotConfigured)
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return failure(errEmptyInput, sugEmptyInput)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.logger.Warn(ctx, "rate limiter wait aborted", zap.Error(err))
			return failure(errNetwork, sugNetwork)
		}
	}

	content, resp := c.complete(ctx, input)
	if resp != nil {
		return resp
	}

	return c.parseContent(ctx, content)
}

// complete performs the HTTP round trip. It returns either the assistant
// content or a failure response.
func (c *Client) complete(ctx context.Context, input string) (string, *models.AIFoodResponse) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: input},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		c.logger.Error(ctx, "failed to marshal completion request", zap.Error(err))
		return "", failure(errAnalyzeFailed, sugAnalyzeFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		c.logger.Error(ctx, "failed to create completion request", zap.Error(err))
		return "", failure(errAnalyzeFailed, sugAnalyzeFailed)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn(ctx, "completion request failed", zap.Error(err))
		return "", failure(errNetwork, sugNetwork)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		c.logger.Warn(ctx, "completion endpoint returned error status",
			zap.Int("status", httpResp.StatusCode),
			zap.String("body", string(snippet)),
		)
		return "", failure(errAnalyzeFailed, sugAnalyzeFailed)
	}

	var chat chatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&chat); err != nil {
		c.logger.Warn(ctx, "failed to decode completion envelope", zap.Error(err))
		return "", failure(errUnparseable, sugUnparseable)
	}

	c.logger.Debug(ctx, "completion received",
		zap.Duration("duration", time.Since(start)),
		zap.Int("choices", len(chat.Choices)),
	)

	if len(chat.Choices) == 0 || strings.TrimSpace(chat.Choices[0].Message.Content) == "" {
		return "", failure(errNoContent, sugNoContent)
	}
	return chat.Choices[0].Message.Content, nil
}

// rawResponse mirrors AIFoodResponse but defers decoding every field so a
// wrongly typed annotation does not sink otherwise valid foods.
type rawResponse struct {
	Foods      json.RawMessage `json:"foods"`
	Confidence json.RawMessage `json:"confidence"`
	Source     json.RawMessage `json:"source"`
	Notes      json.RawMessage `json:"notes"`
	Error      json.RawMessage `json:"error"`
	Suggestion json.RawMessage `json:"suggestion"`
}

// optionalString returns the value when raw is a JSON string, else "".
func optionalString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

type rawItem struct {
	Name     string     `json:"name"`
	Amount   flexNumber `json:"amount"`
	Calories flexNumber `json:"calories"`
	Protein  flexNumber `json:"protein"`
	Carbs    flexNumber `json:"carbs"`
	Fat      flexNumber `json:"fat"`
}

func (c *Client) parseContent(ctx context.Context, content string) *models.AIFoodResponse {
	var raw rawResponse
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		// Models occasionally wrap the object in prose or code fences
		extracted, ok := extractObject(content)
		if !ok || json.Unmarshal([]byte(extracted), &raw) != nil {
			c.logger.Warn(ctx, "completion content is not valid JSON", zap.Error(err))
			return failure(errUnparseable, sugUnparseable)
		}
	}

	if modelErr := optionalString(raw.Error); modelErr != "" {
		return &models.AIFoodResponse{
			Foods:      []models.AIFoodItem{},
			Error:      modelErr,
			Suggestion: optionalString(raw.Suggestion),
		}
	}

	foodsJSON := bytes.TrimSpace(raw.Foods)
	if len(foodsJSON) == 0 || foodsJSON[0] != '[' {
		return failure(errInvalidFormat, sugInvalidFormat)
	}

	var items []rawItem
	if err := json.Unmarshal(foodsJSON, &items); err != nil {
		c.logger.Warn(ctx, "foods list has unexpected shape", zap.Error(err))
		return failure(errInvalidFormat, sugInvalidFormat)
	}

	foods := make([]models.AIFoodItem, 0, len(items))
	for _, it := range items {
		foods = append(foods, models.AIFoodItem{
			Name:     it.Name,
			Amount:   it.Amount.rounded(),
			Unit:     models.Grams,
			Calories: it.Calories.rounded(),
			Protein:  it.Protein.rounded(),
			Carbs:    it.Carbs.rounded(),
			Fat:      it.Fat.rounded(),
		})
	}

	return &models.AIFoodResponse{
		Foods:      foods,
		Confidence: models.ConfidenceLevel(optionalString(raw.Confidence)),
		Source:     optionalString(raw.Source),
		Notes:      optionalString(raw.Notes),
	}
}

// extractObject returns the text between the first '{' and the last '}'.
func extractObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}
	end := strings.LastIndex(s, "}")
	if end == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func failure(msg, suggestion string) *models.AIFoodResponse {
	return &models.AIFoodResponse{
		Foods:      []models.AIFoodItem{},
		Error:      msg,
		Suggestion: suggestion,
	}
}

// String reports the configured model, never the key.
func (c *Client) String() string {
	return fmt.Sprintf("parser(model=%s, base=%s)", c.model, c.baseURL)
}
