package providers

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

const DefaultGoogleBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Google calls the Gemini generateContent endpoint.
type Google struct {
	client  *http.Client
	baseURL string
}

func NewGoogle(hc *http.Client, baseURL string) *Google {
	if baseURL == "" {
		baseURL = DefaultGoogleBaseURL
	}
	return &Google{client: httpClient(hc), baseURL: strings.TrimRight(baseURL, "/")}
}

func (g *Google) ID() string { return "google" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  map[string]any  `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func (g *Google) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
		GenerationConfig: map[string]any{
			"responseMimeType": "application/json",
			"temperature":      0.3,
		},
	}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}

	endpoint := g.baseURL + "/models/" + url.PathEscape(req.Model) + ":generateContent"
	var out geminiResponse
	if err := postJSON(ctx, g.client, g.ID(), endpoint, map[string]string{"x-goog-api-key": req.APIKey}, body, &out); err != nil {
		return "", err
	}

	if out.PromptFeedback.BlockReason != "" {
		return "", &Error{Provider: g.ID(), Message: "prompt blocked: " + out.PromptFeedback.BlockReason}
	}
	if len(out.Candidates) == 0 {
		return "", ErrEmptyAnswer
	}
	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyAnswer
	}
	return sb.String(), nil
}
