// Package providers holds one adapter per LLM vendor. Each adapter turns a
// CompletionRequest into the vendor's REST call and returns the raw text of
// the model's answer.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"
)

type CompletionRequest struct {
	Model  string
	APIKey string
	System string
	Prompt string
}

type Provider interface {
	ID() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Error is a failed call to a provider: transport failure, timeout or a
// non-2xx answer.
type Error struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return fmt.Sprintf("%s rejected the API key (status %d)", e.Provider, e.StatusCode)
	case e.StatusCode == http.StatusTooManyRequests:
		return fmt.Sprintf("%s quota exceeded: %s", e.Provider, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
	default:
		return e.Provider + " request failed: " + e.Message
	}
}

func (e *Error) Unwrap() error { return e.Err }

// ErrEmptyAnswer is returned when the provider answered 2xx without any text.
var ErrEmptyAnswer = errors.New("provider returned no content")

const maxErrorBody = 512

// postJSON sends body to url and decodes a 2xx response into out.
func postJSON(ctx context.Context, hc *http.Client, provider, url string, headers map[string]string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return &Error{Provider: provider, Err: err}
	}
	defer resp.Body.Close()

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Provider: provider, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Provider: provider, StatusCode: resp.StatusCode, Message: errorMessage(rb)}
	}
	if err := json.Unmarshal(rb, out); err != nil {
		return &Error{Provider: provider, StatusCode: resp.StatusCode, Message: "undecodable response", Err: err}
	}
	return nil
}

// errorMessage pulls error.message out of the usual vendor error envelope.
func errorMessage(body []byte) string {
	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	return truncate(strings.TrimSpace(string(body)), maxErrorBody)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func httpClient(hc *http.Client) *http.Client {
	if hc == nil {
		return http.DefaultClient
	}
	return hc
}
