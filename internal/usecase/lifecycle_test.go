package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"cv-optimizer/internal/domain"
	"cv-optimizer/internal/usecase"
	"cv-optimizer/pkg/ai"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withKey(t *testing.T, e *env, email string) {
	t.Helper()
	_, err := e.settings.Update(context.Background(), email, usecase.SettingsUpdate{
		Provider: "google", Model: "gemini-2.5-flash", APIKey: "AIza-user-key-1234",
	})
	require.NoError(t, err)
}

func createCV(t *testing.T, e *env, owner string) *domain.CV {
	t.Helper()
	cv, err := e.manager.Create(context.Background(), owner, usecase.CreateCV{
		Description:    "Test CV",
		JobDescription: "Backend engineer, 5 years Python",
	})
	require.NoError(t, err)
	return cv
}

func TestCreateCompletesInBackground(t *testing.T) {
	cache := newRecordingCache()
	e := newEnv(t, nil, cache)
	withKey(t, e, ada)
	ctx := context.Background()

	cv := createCV(t, e, ada)
	assert.Equal(t, domain.StatusProcessing, cv.Status)
	assert.Equal(t, "google", cv.Provider)
	assert.Equal(t, "gemini-2.5-flash", cv.Model)

	e.wait(t)

	got, err := e.manager.Get(ctx, cv.ID, ada)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	require.NotNil(t, got.CVOptimized)
	assert.Equal(t, "Backend engineer with Python and Go", got.CVOptimized.ProfessionalSummary)
	assert.Nil(t, got.ErrorMessage)

	calls := e.optimizer.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "AIza-user-key-1234", calls[0].APIKey)
	assert.Equal(t, "Backend engineer, 5 years Python", calls[0].JobDescription)

	assert.Equal(t, []domain.Status{domain.StatusProcessing, domain.StatusCompleted}, cache.Published(cv.ID))
}

func TestCreateValidation(t *testing.T) {
	e := newEnv(t, nil, nil)
	long := strings.Repeat("x", 201)
	cases := map[string]usecase.CreateCV{
		"empty description":     {Description: "  ", JobDescription: "jd"},
		"long description":      {Description: long, JobDescription: "jd"},
		"empty job description": {Description: "CV", JobDescription: "\n"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.manager.Create(context.Background(), ada, in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
	list, err := e.manager.List(context.Background(), ada)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateKeepsLinkAndTrims(t *testing.T) {
	e := newEnv(t, map[string]string{"google": "server-key"}, nil)
	link := " https://jobs.example.com/42 "
	cv, err := e.manager.Create(context.Background(), ada, usecase.CreateCV{
		Description: " Platform role ", JobDescription: "Go", Link: &link,
	})
	require.NoError(t, err)
	e.wait(t)

	assert.Equal(t, "Platform role", cv.Description)
	require.NotNil(t, cv.Link)
	assert.Equal(t, "https://jobs.example.com/42", *cv.Link)
}

func TestRunIsIdempotent(t *testing.T) {
	e := newEnv(t, nil, nil)
	withKey(t, e, ada)
	gate := make(chan struct{})
	e.optimizer.gate = gate
	ctx := context.Background()

	cv := createCV(t, e, ada)

	// still processing: a second run must not start
	task, err := e.manager.Run(ctx, cv.ID)
	require.NoError(t, err)
	assert.Nil(t, task)

	st, err := e.manager.Status(ctx, cv.ID, ada)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, st.Status)

	close(gate)
	e.wait(t)

	// terminal: still a no-op
	task, err = e.manager.Run(ctx, cv.ID)
	require.NoError(t, err)
	assert.Nil(t, task)
	assert.Len(t, e.optimizer.Calls(), 1)
}

func TestRunPendingRecord(t *testing.T) {
	e := newEnv(t, nil, nil)
	withKey(t, e, ada)
	ctx := context.Background()
	now := time.Now().UTC()
	cv := &domain.CV{
		ID: uuid.New(), UserEmail: ada, Description: "Queued", JobDescription: "jd",
		Provider: "google", Model: "gemini-2.5-flash", Status: domain.StatusPending,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, e.store.InsertCV(ctx, cv))

	task, err := e.manager.Run(ctx, cv.ID)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, cv.ID, task.CVID)

	select {
	case <-task.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
	}
	assert.Equal(t, domain.StatusCompleted, task.Status())

	_, err = e.manager.Run(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProviderFailureMarksFailed(t *testing.T) {
	e := newEnv(t, nil, nil)
	withKey(t, e, ada)
	e.optimizer.err = &ai.ProviderError{Provider: "google", StatusCode: http.StatusUnauthorized, Message: "API key not valid"}

	cv := createCV(t, e, ada)
	e.wait(t)

	got, err := e.manager.Get(context.Background(), cv.ID, ada)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Contains(t, *got.ErrorMessage, "rejected the API key")
	assert.NotContains(t, *got.ErrorMessage, "AIza-user-key-1234")
	assert.Nil(t, got.CVOptimized)

	_, _, err = e.manager.PDF(context.Background(), cv.ID, ada)
	assert.ErrorIs(t, err, domain.ErrNotReady)
	assert.EqualError(t, err, "CV is not ready. Current status: failed")
}

func TestFailureModes(t *testing.T) {
	cases := []struct {
		name    string
		setup   func(e *env)
		withKey bool
		message string
	}{
		{
			name:    "no key anywhere",
			setup:   func(*env) {},
			message: "No API key configured for google",
		},
		{
			name:    "malformed answer",
			setup:   func(e *env) { e.optimizer.err = errors.Join(ai.ErrMalformedResponse, errors.New("not json")) },
			withKey: true,
			message: "could not be used",
		},
		{
			name:    "panic",
			setup:   func(e *env) { e.optimizer.panic = true },
			withKey: true,
			message: "Unexpected error",
		},
		{
			name:    "answer with wrong shape",
			setup:   func(e *env) { e.optimizer.out = map[string]any{"education": "none"} },
			withKey: true,
			message: "could not be used",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t, nil, nil)
			if tc.withKey {
				withKey(t, e, ada)
			}
			tc.setup(e)

			cv := createCV(t, e, ada)
			e.wait(t)

			got, err := e.manager.Get(context.Background(), cv.ID, ada)
			require.NoError(t, err)
			assert.Equal(t, domain.StatusFailed, got.Status)
			require.NotNil(t, got.ErrorMessage)
			assert.Contains(t, *got.ErrorMessage, tc.message)
		})
	}
}

func TestFallbackKey(t *testing.T) {
	e := newEnv(t, map[string]string{"google": "server-key"}, nil)

	cv := createCV(t, e, ada)
	e.wait(t)

	got, err := e.manager.Get(context.Background(), cv.ID, ada)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, "server-key", e.optimizer.Calls()[0].APIKey)
}

func TestOwnership(t *testing.T) {
	e := newEnv(t, nil, nil)
	withKey(t, e, ada)
	ctx := context.Background()
	cv := createCV(t, e, ada)
	e.wait(t)

	_, err := e.manager.Get(ctx, cv.ID, bob)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = e.manager.Status(ctx, cv.ID, bob)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, _, err = e.manager.PDF(ctx, cv.ID, bob)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.ErrorIs(t, e.manager.Delete(ctx, cv.ID, bob), domain.ErrForbidden)

	list, err := e.manager.List(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = e.manager.Get(ctx, uuid.New(), ada)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStatusUsesCache(t *testing.T) {
	cache := newRecordingCache()
	e := newEnv(t, nil, cache)
	withKey(t, e, ada)
	ctx := context.Background()
	cv := createCV(t, e, ada)
	e.wait(t)

	st, err := e.manager.Status(ctx, cv.ID, ada)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, st.Status)

	// a cached snapshot wins over the store
	msg := "cached"
	cache.SetStatus(ctx, domain.StatusSnapshot{ID: cv.ID, Owner: ada, Status: domain.StatusFailed, ErrorMessage: &msg})
	st, err = e.manager.Status(ctx, cv.ID, ada)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, st.Status)
}

func TestStatusNotCachedAfterRacingDelete(t *testing.T) {
	ctx := context.Background()
	deleteOnSet := func(t *testing.T, e *env, cache *recordingCache, id uuid.UUID) {
		cache.hookNextSet(func(domain.StatusSnapshot) {
			assert.NoError(t, e.manager.Delete(ctx, id, ada))
		})
	}

	t.Run("delete before terminal write is cached", func(t *testing.T) {
		cache := newRecordingCache()
		e := newEnv(t, nil, cache)
		withKey(t, e, ada)
		gate := make(chan struct{})
		e.optimizer.gate = gate

		cv := createCV(t, e, ada)
		deleteOnSet(t, e, cache, cv.ID)
		close(gate)
		e.wait(t)

		_, err := e.manager.Get(ctx, cv.ID, ada)
		require.ErrorIs(t, err, domain.ErrNotFound)
		_, err = e.manager.Status(ctx, cv.ID, ada)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delete while a poll refills the cache", func(t *testing.T) {
		cache := newRecordingCache()
		e := newEnv(t, nil, cache)
		withKey(t, e, ada)
		cv := createCV(t, e, ada)
		e.wait(t)
		cache.DeleteStatus(ctx, cv.ID)

		deleteOnSet(t, e, cache, cv.ID)
		st, err := e.manager.Status(ctx, cv.ID, ada)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, st.Status)

		_, ok := cache.GetStatus(ctx, cv.ID)
		assert.False(t, ok)
		_, err = e.manager.Status(ctx, cv.ID, ada)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestDeleteAndPDF(t *testing.T) {
	cache := newRecordingCache()
	e := newEnv(t, nil, cache)
	withKey(t, e, ada)
	ctx := context.Background()
	cv := createCV(t, e, ada)
	e.wait(t)

	pdf, name, err := e.manager.PDF(ctx, cv.ID, ada)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF"))
	assert.Equal(t, "Test CV.pdf", name)

	require.NoError(t, e.manager.Delete(ctx, cv.ID, ada))
	_, err = e.manager.Get(ctx, cv.ID, ada)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = e.manager.Status(ctx, cv.ID, ada)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, e.manager.Delete(ctx, cv.ID, ada), domain.ErrNotFound)

	list, err := e.manager.List(ctx, ada)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDeleteWhileProcessing(t *testing.T) {
	e := newEnv(t, nil, nil)
	withKey(t, e, ada)
	gate := make(chan struct{})
	e.optimizer.gate = gate
	ctx := context.Background()

	cv := createCV(t, e, ada)
	require.NoError(t, e.manager.Delete(ctx, cv.ID, ada))
	close(gate)
	e.wait(t)

	_, err := e.store.GetCV(ctx, cv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecoverStale(t *testing.T) {
	e := newEnv(t, map[string]string{"google": "server-key"}, nil)
	ctx := context.Background()
	old := time.Now().UTC().Add(-time.Hour)

	stuck := &domain.CV{
		ID: uuid.New(), UserEmail: ada, Description: "Stuck", JobDescription: "jd",
		Provider: "google", Model: "gemini-2.5-flash", Status: domain.StatusProcessing,
		CreatedAt: old, UpdatedAt: old,
	}
	queued := &domain.CV{
		ID: uuid.New(), UserEmail: ada, Description: "Queued", JobDescription: "jd",
		Provider: "google", Model: "gemini-2.5-flash", Status: domain.StatusPending,
		CreatedAt: old, UpdatedAt: old,
	}
	require.NoError(t, e.store.InsertCV(ctx, stuck))
	require.NoError(t, e.store.InsertCV(ctx, queued))

	rec, err := e.manager.RecoverStale(ctx, time.Now().Add(-30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, usecase.Recovery{Failed: 1, Dispatched: 1}, rec)
	e.wait(t)

	got, err := e.manager.Get(ctx, stuck.ID, ada)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "Generation interrupted before completion", *got.ErrorMessage)

	got, err = e.manager.Get(ctx, queued.ID, ada)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)

	// nothing left to do
	rec, err = e.manager.RecoverStale(ctx, time.Now().Add(-30*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, rec)
}

func TestFailureMessage(t *testing.T) {
	assert.Equal(t, "Unexpected error while generating the CV", usecase.FailureMessage(errors.New("db gone")))
	assert.Equal(t, "The generated CV could not be rendered", usecase.FailureMessage(domain.ErrRender))
	assert.Equal(t, "Unsupported AI provider", usecase.FailureMessage(ai.ErrUnknownProvider))
}
