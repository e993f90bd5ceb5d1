// Package summary turns a batch of chat messages into a short
// analytical digest through the OpenRouter chat-completions API.
package summary

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

	"go.uber.org/zap"
)

// ErrNoMessages reports a summarize call with nothing to digest.
var ErrNoMessages = errors.New("no messages to summarize")

// DefaultBaseURL is the OpenRouter chat-completions endpoint.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// DefaultModel is used when the configuration leaves the model empty.
const DefaultModel = "deepseek/deepseek-chat"

// prompt asks for a single-paragraph Persian digest covering the key
// points, relations between messages and overall sentiment.
const prompt = "پیام‌ها را به فارسی خلاصه کن و تحلیل دقیقی از آن‌ها ارائه بده. " +
	"خلاصه باید به صورت یک پاراگراف خبری و تحلیلی باشد که نکات اصلی، عبارات کلیدی، " +
	"روابط بین پیام‌ها، و احساسات مطرح‌شده را به‌طور جامع پوشش دهد. " +
	"لطفاً دقت کن که جمله‌ها به‌طور کامل به پایان برسند و خلاصه به‌صورت یک متن " +
	"یکپارچه و بدون بریدگی یا قطع ناگهانی ارائه شود:\n\n%s\n\nخلاصه:"

// Config carries the summarizer settings.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client talks to one OpenRouter-compatible endpoint.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	model   string
	logger  *zap.Logger
}

// New creates a Client. The API key may be empty; Summarize will then
// fail with the server's authorization error rather than up front, so
// a misconfigured key and a missing key surface the same way.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimSuffix(base, "/"),
		apiKey:  cfg.APIKey,
		model:   model,
		logger:  logger,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Summarize digests the given message texts into one paragraph.
func (c *Client) Summarize(ctx context.Context, texts []string) (string, error) {
	texts = nonEmpty(texts)
	if len(texts) == 0 {
		return "", ErrNoMessages
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: fmt.Sprintf(prompt, strings.Join(texts, "\n"))}},
		MaxTokens:   500,
		Temperature: 0.6,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call summarizer: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return "", fmt.Errorf("summarizer: %s (status %d)", parsed.Error.Message, resp.StatusCode)
		}
		return "", fmt.Errorf("summarizer: status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("summarizer: empty response")
	}

	out := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if out == "" {
		return "", errors.New("summarizer: empty summary")
	}
	if !strings.HasSuffix(out, ".") {
		out += "."
	}
	c.logger.Info("summary generated",
		zap.String("model", c.model),
		zap.Int("messages", len(texts)),
		zap.Duration("took", time.Since(start)))
	return out, nil
}

func nonEmpty(texts []string) []string {
	out := texts[:0:0]
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			out = append(out, t)
		}
	}
	return out
}
