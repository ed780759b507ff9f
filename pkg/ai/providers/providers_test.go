package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "g-key", r.Header.Get("x-goog-api-key"))

		var body geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "be strict", body.SystemInstruction.Parts[0].Text)
		assert.Equal(t, "application/json", body.GenerationConfig["responseMimeType"])

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"a\":"},{"text":"1}"}]}}]}`))
	}))
	defer srv.Close()

	g := NewGoogle(srv.Client(), srv.URL)
	out, err := g.Complete(context.Background(), CompletionRequest{
		Model: "gemini-2.5-flash", APIKey: "g-key", System: "be strict", Prompt: "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, out)
}

func TestGoogleRejectedKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key not valid"}}`))
	}))
	defer srv.Close()

	_, err := NewGoogle(srv.Client(), srv.URL).Complete(context.Background(), CompletionRequest{Model: "m", APIKey: "bad"})

	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusForbidden, pe.StatusCode)
	assert.Equal(t, "API key not valid", pe.Message)
	assert.Contains(t, pe.Error(), "rejected the API key")
	assert.NotContains(t, pe.Error(), "bad")
}

func TestGoogleNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	_, err := NewGoogle(srv.Client(), srv.URL).Complete(context.Background(), CompletionRequest{Model: "m"})
	assert.ErrorIs(t, err, ErrEmptyAnswer)
}

func TestGroqComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk-key", r.Header.Get("Authorization"))

		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "openai/gpt-oss-120b", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Equal(t, "json_object", body.ResponseFormat["type"])

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{}"}}]}`))
	}))
	defer srv.Close()

	out, err := NewGroq(srv.Client(), srv.URL).Complete(context.Background(), CompletionRequest{
		Model: "openai/gpt-oss-120b", APIKey: "gsk-key", System: "sys", Prompt: "user",
	})
	require.NoError(t, err)
	assert.Equal(t, "{}", out)
}

func TestGroqQuota(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached"}}`))
	}))
	defer srv.Close()

	_, err := NewGroq(srv.Client(), srv.URL).Complete(context.Background(), CompletionRequest{Model: "m"})

	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Error(), "quota exceeded")
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewGroq(nil, url).Complete(context.Background(), CompletionRequest{Model: "m"})

	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Zero(t, pe.StatusCode)
	assert.NotNil(t, pe.Err)
}

func TestErrorBodyTruncatedOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("a", maxErrorBody-1) + strings.Repeat("é", 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	_, err := NewGroq(srv.Client(), srv.URL).Complete(context.Background(), CompletionRequest{Model: "m"})

	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.True(t, utf8.ValidString(pe.Message))
	assert.Equal(t, strings.Repeat("a", maxErrorBody-1), pe.Message)
	assert.Equal(t, "héé", truncate("héé", 5))
	assert.Equal(t, "h", truncate("héé", 2))
}
