package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"cv-optimizer/internal/adapter/repository"
	"cv-optimizer/internal/auth"
	"cv-optimizer/internal/cryptox"
	"cv-optimizer/internal/domain"
	"cv-optimizer/internal/render"
	"cv-optimizer/internal/usecase"
	"cv-optimizer/pkg/ai"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const (
	ada = "ada@example.com"
	bob = "bob@example.com"
)

// fakeOptimizer answers with out or err and records every call.
type fakeOptimizer struct {
	mu    sync.Mutex
	calls []ai.Request
	out   map[string]any
	err   error
	panic bool

	// when set, calls block until it is closed
	gate chan struct{}
}

func (f *fakeOptimizer) Optimize(_ context.Context, req ai.Request) (map[string]any, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if f.panic {
		panic("boom")
	}
	return f.out, f.err
}

func (f *fakeOptimizer) Calls() []ai.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ai.Request(nil), f.calls...)
}

type fakePDF struct{ err error }

func (f fakePDF) RenderHTMLToPDF(context.Context, string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.7 fake"), nil
}

// recordingCache is an in-memory StatusCache that keeps what was published.
type recordingCache struct {
	mu        sync.Mutex
	snapshots map[uuid.UUID]domain.StatusSnapshot
	published []domain.StatusSnapshot

	// onSet runs once, before the next SetStatus is applied.
	onSet func(domain.StatusSnapshot)
}

func newRecordingCache() *recordingCache {
	return &recordingCache{snapshots: map[uuid.UUID]domain.StatusSnapshot{}}
}

func (c *recordingCache) GetStatus(_ context.Context, id uuid.UUID) (*domain.StatusSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.snapshots[id]
	if !ok {
		return nil, false
	}
	return &s, true
}

func (c *recordingCache) SetStatus(_ context.Context, s domain.StatusSnapshot) {
	c.mu.Lock()
	hook := c.onSet
	c.onSet = nil
	c.mu.Unlock()
	if hook != nil {
		hook(s)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[s.ID] = s
}

func (c *recordingCache) hookNextSet(fn func(domain.StatusSnapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSet = fn
}

func (c *recordingCache) DeleteStatus(_ context.Context, id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snapshots, id)
}

func (c *recordingCache) Publish(_ context.Context, s domain.StatusSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, s)
}

func (c *recordingCache) Published(id uuid.UUID) []domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Status
	for _, s := range c.published {
		if s.ID == id {
			out = append(out, s.Status)
		}
	}
	return out
}

type env struct {
	store     *repository.MemoryStore
	optimizer *fakeOptimizer
	auth      *usecase.AuthService
	settings  *usecase.SettingsService
	profile   *usecase.ProfileService
	manager   *usecase.Manager
}

func optimizedContent() map[string]any {
	return map[string]any{
		"professional_summary": "Backend engineer with Python and Go",
		"core_competencies":    map[string]any{"technical_skills": []any{"Python", "Go"}},
		"professional_experience": []any{
			map[string]any{"job_title": "Engineer", "company": "Acme", "achievements": []any{"Built APIs"}},
		},
		"education": []any{map[string]any{"degree": "BSc", "institution": "Uni"}},
	}
}

func newEnv(t *testing.T, fallback map[string]string, cache usecase.StatusCache) *env {
	t.Helper()
	store := repository.NewMemoryStore()
	cipher, err := cryptox.NewCipher("test-secret")
	require.NoError(t, err)
	renderer, err := render.New(fakePDF{})
	require.NoError(t, err)

	opt := &fakeOptimizer{out: optimizedContent()}
	settings := usecase.NewSettingsService(store, store, cipher, fallback)
	e := &env{
		store:     store,
		optimizer: opt,
		auth:      usecase.NewAuthService(store, auth.NewHMACService("test-secret", time.Hour)),
		settings:  settings,
		profile:   usecase.NewProfileService(store, renderer),
		manager: usecase.NewManager(usecase.ManagerDeps{
			CVs:       store,
			Users:     store,
			Keys:      settings,
			Optimizer: opt,
			Renderer:  renderer,
			Cache:     cache,
		}),
	}
	for _, email := range []string{ada, bob} {
		_, err := e.auth.Signup(context.Background(), email, "correct horse")
		require.NoError(t, err)
	}
	return e
}

// wait drains every background run started so far.
func (e *env) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.manager.Wait(ctx))
}
