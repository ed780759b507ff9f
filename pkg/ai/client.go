package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"cv-optimizer/pkg/ai/providers"

	"github.com/xeipuuv/gojsonschema"
)

var (
	// ErrMalformedResponse means the model answered but the answer could not be
	// turned into a valid CV.
	ErrMalformedResponse = errors.New("malformed AI response")
	ErrUnknownProvider   = errors.New("unknown provider")
)

// ProviderError is returned for failed provider calls.
type ProviderError = providers.Error

// Request is one optimization call. APIKey is used for this call only.
type Request struct {
	JobDescription string
	BaseContent    map[string]any
	Provider       string
	Model          string
	APIKey         string
}

type Options struct {
	HTTP          *http.Client
	Timeout       time.Duration
	GoogleBaseURL string
	GroqBaseURL   string
	// Schema is the JSON schema answers are validated against.
	Schema []byte
	Logger *slog.Logger
}

// Client optimizes CV content through the registered providers.
type Client struct {
	providers map[string]providers.Provider
	schema    *gojsonschema.Schema
	rawSchema []byte
	logger    *slog.Logger
}

func NewClient(opts Options) (*Client, error) {
	hc := opts.HTTP
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		providers: map[string]providers.Provider{},
		rawSchema: opts.Schema,
		logger:    logger.With("component", "ai"),
	}
	if len(opts.Schema) > 0 {
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(opts.Schema))
		if err != nil {
			return nil, fmt.Errorf("load response schema: %w", err)
		}
		c.schema = s
	}

	c.Register(providers.NewGoogle(hc, opts.GoogleBaseURL))
	c.Register(providers.NewGroq(hc, opts.GroqBaseURL))
	return c, nil
}

// Register adds or replaces the adapter for p.ID().
func (c *Client) Register(p providers.Provider) {
	c.providers[p.ID()] = p
}

// Optimize asks the selected provider for a version of req.BaseContent
// tailored to req.JobDescription. Exactly one provider call is made.
func (c *Client) Optimize(ctx context.Context, req Request) (map[string]any, error) {
	p, ok := c.providers[req.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, req.Provider)
	}

	prompt, err := buildPrompt(req.JobDescription, req.BaseContent, c.rawSchema)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	start := time.Now()
	answer, err := p.Complete(ctx, providers.CompletionRequest{
		Model:  req.Model,
		APIKey: req.APIKey,
		System: systemInstruction,
		Prompt: prompt,
	})
	log := c.logger.With("provider", req.Provider, "model", req.Model, "latency", time.Since(start))
	if err != nil {
		log.Warn("provider call failed", "error", err)
		if errors.Is(err, providers.ErrEmptyAnswer) {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return nil, err
	}
	log.Info("provider call completed", "answer_bytes", len(answer))

	out, err := extractJSON(answer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	cleanContent(out)

	if err := c.validate(out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := checkStructure(out, req.BaseContent); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return out, nil
}

func (c *Client) validate(m map[string]any) error {
	if c.schema == nil {
		return nil
	}
	res, err := c.schema.Validate(gojsonschema.NewGoLoader(m))
	if err != nil {
		return err
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; "))
}
