package providers

import (
	"context"
	"net/http"
	"strings"
)

const DefaultGroqBaseURL = "https://api.groq.com/openai/v1"

// Groq calls the OpenAI-compatible chat completions endpoint.
type Groq struct {
	client  *http.Client
	baseURL string
}

func NewGroq(hc *http.Client, baseURL string) *Groq {
	if baseURL == "" {
		baseURL = DefaultGroqBaseURL
	}
	return &Groq{client: httpClient(hc), baseURL: strings.TrimRight(baseURL, "/")}
}

func (g *Groq) ID() string { return "groq" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

func (g *Groq) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	msgs := make([]chatMessage, 0, 2)
	if req.System != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.System})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{
		Model:          req.Model,
		Messages:       msgs,
		Temperature:    0.3,
		ResponseFormat: map[string]any{"type": "json_object"},
	}

	var out chatResponse
	headers := map[string]string{"Authorization": "Bearer " + req.APIKey}
	if err := postJSON(ctx, g.client, g.ID(), g.baseURL+"/chat/completions", headers, body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", ErrEmptyAnswer
	}
	return out.Choices[0].Message.Content, nil
}
