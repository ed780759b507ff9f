// Package client is a Go client for the CV optimizer HTTP API.
package client

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

	"cv-optimizer/internal/domain"
	"cv-optimizer/internal/model"
	"cv-optimizer/internal/usecase"
	"cv-optimizer/pkg/ai"

	"github.com/google/uuid"
)

// DefaultPollInterval matches how often the browser client polls.
const DefaultPollInterval = 3 * time.Second

// APIError is a non-2xx answer carrying the server's detail message.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Detail)
}

// StatusCodeOf returns the HTTP status of an *APIError, or 0.
func StatusCodeOf(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode
	}
	return 0
}

type Client struct {
	baseURL      string
	hc           *http.Client
	token        string
	PollInterval time.Duration
}

// New returns a client for baseURL, e.g. "http://localhost:3000".
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/") + "/api/v1",
		hc:           hc,
		PollInterval: DefaultPollInterval,
	}
}

func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) Token() string { return c.token }

func (c *Client) do(ctx context.Context, method, path string, body, out any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		var d struct {
			Detail string `json:"detail"`
		}
		if json.NewDecoder(resp.Body).Decode(&d) != nil || d.Detail == "" {
			d.Detail = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Detail: d.Detail}
	}
	if out == nil {
		_ = resp.Body.Close()
		return resp, nil
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return resp, nil
}

// Signup creates an account and keeps its token for later calls.
func (c *Client) Signup(ctx context.Context, email, password string) (usecase.Session, error) {
	return c.session(ctx, "/auth/signup", email, password)
}

func (c *Client) Login(ctx context.Context, email, password string) (usecase.Session, error) {
	return c.session(ctx, "/auth/login", email, password)
}

func (c *Client) session(ctx context.Context, path, email, password string) (usecase.Session, error) {
	var s usecase.Session
	if _, err := c.do(ctx, http.MethodPost, path, map[string]string{"email": email, "password": password}, &s); err != nil {
		return usecase.Session{}, err
	}
	c.token = s.AccessToken
	return s, nil
}

func (c *Client) Providers(ctx context.Context) ([]ai.ProviderInfo, error) {
	var out struct {
		Providers []ai.ProviderInfo `json:"providers"`
	}
	_, err := c.do(ctx, http.MethodGet, "/providers", nil, &out)
	return out.Providers, err
}

func (c *Client) Settings(ctx context.Context) (usecase.Settings, error) {
	var s usecase.Settings
	_, err := c.do(ctx, http.MethodGet, "/settings", nil, &s)
	return s, err
}

// UpdateSettings stores provider and model. An empty apiKey keeps the stored key.
func (c *Client) UpdateSettings(ctx context.Context, provider, modelID, apiKey string) error {
	body := map[string]string{"provider": provider, "model": modelID}
	if apiKey != "" {
		body["api_key"] = apiKey
	}
	_, err := c.do(ctx, http.MethodPut, "/settings", body, nil)
	return err
}

func (c *Client) DeleteAPIKey(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodDelete, "/settings/api-key", nil, nil)
	return err
}

func (c *Client) Profile(ctx context.Context) (usecase.Profile, error) {
	var p usecase.Profile
	_, err := c.do(ctx, http.MethodGet, "/profile", nil, &p)
	return p, err
}

func (c *Client) UpdatePersonalData(ctx context.Context, patch model.PersonalDataPatch) error {
	_, err := c.do(ctx, http.MethodPut, "/profile/personal", patch, nil)
	return err
}

func (c *Client) UpdateCVContent(ctx context.Context, content map[string]any) error {
	_, err := c.do(ctx, http.MethodPut, "/profile/content", map[string]any{"cv_content": content}, nil)
	return err
}

func (c *Client) CreateCV(ctx context.Context, description, jobDescription string, link *string) (*domain.CV, error) {
	var cv domain.CV
	body := map[string]any{"description": description, "job_description": jobDescription, "link": link}
	if _, err := c.do(ctx, http.MethodPost, "/cvs", body, &cv); err != nil {
		return nil, err
	}
	return &cv, nil
}

func (c *Client) ListCVs(ctx context.Context) ([]domain.CV, error) {
	var out struct {
		CVs []domain.CV `json:"cvs"`
	}
	_, err := c.do(ctx, http.MethodGet, "/cvs", nil, &out)
	return out.CVs, err
}

func (c *Client) GetCV(ctx context.Context, id uuid.UUID) (*domain.CV, error) {
	var cv domain.CV
	if _, err := c.do(ctx, http.MethodGet, "/cvs/"+id.String(), nil, &cv); err != nil {
		return nil, err
	}
	return &cv, nil
}

func (c *Client) DeleteCV(ctx context.Context, id uuid.UUID) error {
	_, err := c.do(ctx, http.MethodDelete, "/cvs/"+id.String(), nil, nil)
	return err
}

func (c *Client) Status(ctx context.Context, id uuid.UUID) (domain.StatusSnapshot, error) {
	s := domain.StatusSnapshot{ID: id}
	_, err := c.do(ctx, http.MethodGet, "/cvs/"+id.String()+"/status", nil, &s)
	return s, err
}

// PDF downloads a completed CV.
func (c *Client) PDF(ctx context.Context, id uuid.UUID) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/cvs/"+id.String()+"/pdf", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var d struct {
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&d)
		return nil, &APIError{StatusCode: resp.StatusCode, Detail: d.Detail}
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/pdf") {
		return nil, fmt.Errorf("unexpected content type %q", ct)
	}
	return io.ReadAll(resp.Body)
}

// WaitForCV polls the status of id every PollInterval until it is completed
// or failed, then returns the full record.
func (c *Client) WaitForCV(ctx context.Context, id uuid.UUID) (*domain.CV, error) {
	interval := c.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s, err := c.Status(ctx, id)
		if err != nil {
			return nil, err
		}
		if s.Status.IsTerminal() {
			return c.GetCV(ctx, id)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
