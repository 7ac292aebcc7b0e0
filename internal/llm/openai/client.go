package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"resume-insight/internal/llm"
)

const apiURL = "https://api.openai.com/v1/chat/completions"

const systemPrompt = "You are an expert resume analysis engine. Respond with JSON only. No markdown. Never omit keys."

// Client implements llm.Client using OpenAI Chat Completions. The fast tier
// and the enhanced tier map to two different model names.
type Client struct {
	apiKey        string
	fastModel     string
	enhancedModel string
	baseURL       string
	httpClient    *http.Client
}

// NewClient constructs an OpenAI client. Both tier models are required.
func NewClient(apiKey, fastModel, enhancedModel string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if strings.TrimSpace(fastModel) == "" || strings.TrimSpace(enhancedModel) == "" {
		return nil, fmt.Errorf("LLM_FAST_MODEL and LLM_ENHANCED_MODEL are required")
	}
	timeout := 60 * time.Second
	if raw := strings.TrimSpace(os.Getenv("OPENAI_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return &Client{
		apiKey:        apiKey,
		fastModel:     fastModel,
		enhancedModel: enhancedModel,
		baseURL:       apiURL,
		httpClient:    &http.Client{Timeout: timeout},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    *float32       `json:"temperature,omitempty"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Invoke sends the prompt to the tier's model and returns the raw text.
func (c *Client) Invoke(ctx context.Context, prompt string, tier llm.Tier) (string, error) {
	model := c.fastModel
	if tier == llm.TierEnhanced {
		model = c.enhancedModel
	}

	temp := float32(0)
	reqBody := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature:    &temp,
		ResponseFormat: responseFormat{Type: "json_object"},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", fmt.Errorf("%w: openai model=%s: %v", llm.ErrTimeout, model, err)
		}
		return "", fmt.Errorf("%w: openai model=%s: %v", llm.ErrUnavailable, model, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: openai read body: %v", llm.ErrUnavailable, err)
	}

	if err := classifyStatus(resp.StatusCode, body); err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: openai response parse: %v", llm.ErrUnavailable, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%w: openai error: %s (%s)", llm.ErrUnavailable, parsed.Error.Message, parsed.Error.Type)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: openai response missing choices", llm.ErrUnavailable)
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: openai response empty content", llm.ErrUnavailable)
	}
	logUsage(model, tier, parsed.Usage)
	return content, nil
}

func classifyStatus(status int, body []byte) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: openai http status 429", llm.ErrRateLimited)
	case status >= 500:
		return fmt.Errorf("%w: openai http status %d", llm.ErrUnavailable, status)
	case status >= 400:
		return fmt.Errorf("%w: openai http status %d: %s", llm.ErrBadRequest, status, truncateBody(body))
	default:
		return nil
	}
}

func truncateBody(body []byte) string {
	msg := strings.TrimSpace(string(body))
	const maxLen = 300
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}

func logUsage(model string, tier llm.Tier, usage *struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}) {
	if usage == nil {
		return
	}
	log.Printf("llm response model=%s tier=%s prompt_tokens=%d completion_tokens=%d total_tokens=%d",
		model, tier, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
}

var _ llm.Client = (*Client)(nil)
