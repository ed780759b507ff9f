// Command smoke runs the whole service in-process against a mock Gemini
// endpoint and walks one CV through its lifecycle with the Go client.
//
//	go run ./cmd/smoke -out smoke.pdf
//
// Without -chrome the PDF step uses a stub converter.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"cv-optimizer/internal/adapter/cache"
	httpadapter "cv-optimizer/internal/adapter/http"
	"cv-optimizer/internal/adapter/repository"
	"cv-optimizer/internal/auth"
	"cv-optimizer/internal/cryptox"
	"cv-optimizer/internal/model"
	"cv-optimizer/internal/render"
	"cv-optimizer/internal/usecase"
	"cv-optimizer/pkg/ai"
	"cv-optimizer/pkg/client"
	infra "cv-optimizer/pkg/infrastructure"
)

const mockAnswer = `{
  "professional_summary": "Backend engineer with five years of **Python** and Go.",
  "core_competencies": {"technical_skills": ["Python", "Go", "PostgreSQL"]},
  "professional_experience": [
    {"job_title": "Backend Engineer", "company": "Acme", "location": "Remote", "start_date": "2020", "end_date": "",
     "achievements": ["Cut p99 latency of the billing API by 40%.", "Led the move from cron scripts to a job queue."]}
  ],
  "education": [{"degree": "BSc Computer Science", "institution": "State University", "graduation_year": 2019}]
}`

func startMockGemini() (string, func(), error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/models/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"missing key"}}`))
			return
		}
		resp := map[string]any{
			"candidates": []any{
				map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": mockAnswer}}}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	return "http://" + ln.Addr().String(), func() { _ = srv.Close() }, nil
}

type stubPDF struct{}

func (stubPDF) RenderHTMLToPDF(context.Context, string) ([]byte, error) {
	return []byte("%PDF-1.4\n% smoke stub\n"), nil
}

func main() {
	out := flag.String("out", "", "write the downloaded PDF here")
	chrome := flag.Bool("chrome", false, "render the PDF with headless Chrome")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	if err := run(logger, *chrome, *out); err != nil {
		logger.Error("smoke failed", "error", err)
		os.Exit(1)
	}
	logger.Info("smoke passed")
}

func run(logger *slog.Logger, chrome bool, out string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	geminiURL, stopMock, err := startMockGemini()
	if err != nil {
		return err
	}
	defer stopMock()

	store := repository.NewMemoryStore()
	cipher, err := cryptox.NewCipher("smoke-secret")
	if err != nil {
		return err
	}
	aiClient, err := ai.NewClient(ai.Options{GoogleBaseURL: geminiURL, Schema: model.Schema, Logger: logger})
	if err != nil {
		return err
	}
	var pdf render.PDFConverter = stubPDF{}
	if chrome {
		pdf = infra.NewChromedpRenderer(os.Getenv("CHROME_PATH"), time.Minute)
	}
	renderer, err := render.New(pdf)
	if err != nil {
		return err
	}

	authSvc := usecase.NewAuthService(store, auth.NewHMACService("smoke-secret", time.Hour))
	settings := usecase.NewSettingsService(store, store, cipher, nil)
	manager := usecase.NewManager(usecase.ManagerDeps{
		CVs:       store,
		Users:     store,
		Keys:      settings,
		Optimizer: aiClient,
		Renderer:  renderer,
		Cache:     cache.NewStatusCache(ctx, os.Getenv("REDIS_URL"), time.Minute, logger),
		Logger:    logger,
	})
	h := httpadapter.NewHandler(authSvc, usecase.NewProfileService(store, renderer), settings, manager, "smoke")
	app := httpadapter.NewApp(h, authSvc, httpadapter.AppOptions{AppName: "smoke", Logger: logger})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	go func() { _ = app.Listener(ln) }()
	defer func() { _ = app.Shutdown() }()

	c := client.New("http://"+ln.Addr().String(), nil)
	c.PollInterval = 200 * time.Millisecond

	if _, err := c.Signup(ctx, "smoke@example.com", "smoke-password"); err != nil {
		return fmt.Errorf("signup: %w", err)
	}
	if err := c.UpdateSettings(ctx, "google", "gemini-2.5-flash", "AIza-smoke-0000"); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	name, title := "Sam Smoke", "Backend Engineer"
	if err := c.UpdatePersonalData(ctx, model.PersonalDataPatch{FullName: &name, JobTitle: &title}); err != nil {
		return fmt.Errorf("personal data: %w", err)
	}
	base := map[string]any{
		"professional_summary": "Engineer",
		"professional_experience": []any{
			map[string]any{"job_title": "Engineer", "company": "Acme", "achievements": []any{"Built billing"}},
		},
	}
	if err := c.UpdateCVContent(ctx, base); err != nil {
		return fmt.Errorf("cv content: %w", err)
	}

	cv, err := c.CreateCV(ctx, "Smoke CV", "Backend engineer, 5 years Python", nil)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	logger.Info("cv created", "cv_id", cv.ID, "status", cv.Status)

	cv, err = c.WaitForCV(ctx, cv.ID)
	if err != nil {
		return fmt.Errorf("wait: %w", err)
	}
	if cv.ErrorMessage != nil {
		return fmt.Errorf("cv %s: %s", cv.Status, *cv.ErrorMessage)
	}
	logger.Info("cv finished", "cv_id", cv.ID, "status", cv.Status)

	b, err := c.PDF(ctx, cv.ID)
	if err != nil {
		return fmt.Errorf("pdf: %w", err)
	}
	logger.Info("pdf downloaded", "bytes", len(b))
	if out != "" {
		if err := os.WriteFile(out, b, 0o644); err != nil {
			return err
		}
	}

	if err := c.DeleteCV(ctx, cv.ID); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return manager.Wait(ctx)
}
