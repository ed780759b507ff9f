package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPanicIsRecoveredAndLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	app := NewApp(NewHandler(nil, nil, nil, nil, "test"), nil, AppOptions{Logger: logger})
	app.Get("/boom", func(*fiber.Ctx) error { panic("boom") })

	req := httptest.NewRequest(fiber.MethodGet, "/boom", nil)
	req.Header.Set(fiber.HeaderXRequestID, "req-1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Internal server error", body["detail"])

	var access map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(line, &rec))
		if rec["msg"] == "http access" {
			access = rec
		}
	}
	require.NotNil(t, access, "no access log line for the panicking request")
	assert.Equal(t, "req-1", access["request_id"])
	assert.Equal(t, "/boom", access["path"])
	assert.EqualValues(t, fiber.StatusInternalServerError, access["status"])
}
