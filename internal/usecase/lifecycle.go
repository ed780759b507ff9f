package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"cv-optimizer/internal/domain"
	"cv-optimizer/internal/model"
	"cv-optimizer/pkg/ai"

	"github.com/google/uuid"
)

const maxDescriptionLength = 200

// interruptedMessage is recorded on runs that never reached a terminal state.
const interruptedMessage = "Generation interrupted before completion"

// KeyResolver finds the API key a generation run should use.
type KeyResolver interface {
	ResolveAPIKey(ctx context.Context, email, provider string) (string, error)
}

type CreateCV struct {
	Description    string
	JobDescription string
	Link           *string
}

// Task is one background generation run. Done is closed after the terminal
// status has been written (or the write was abandoned).
type Task struct {
	CVID uuid.UUID

	done   chan struct{}
	status domain.Status
}

func (t *Task) Done() <-chan struct{} { return t.done }

// Status is the terminal status written by the run. Valid once Done is closed.
func (t *Task) Status() domain.Status { return t.status }

// Manager owns the CV state machine and the background runs that drive it.
type Manager struct {
	cvs       CVRepo
	users     UserRepo
	keys      KeyResolver
	optimizer Optimizer
	renderer  Renderer
	cache     StatusCache
	logger    *slog.Logger
	now       func() time.Time

	wg sync.WaitGroup
}

type ManagerDeps struct {
	CVs       CVRepo
	Users     UserRepo
	Keys      KeyResolver
	Optimizer Optimizer
	Renderer  Renderer
	// Cache is optional.
	Cache  StatusCache
	Logger *slog.Logger
}

func NewManager(d ManagerDeps) *Manager {
	cache := d.Cache
	if cache == nil {
		cache = noopCache{}
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cvs:       d.CVs,
		users:     d.Users,
		keys:      d.Keys,
		optimizer: d.Optimizer,
		renderer:  d.Renderer,
		cache:     cache,
		logger:    logger.With("component", "lifecycle"),
		now:       time.Now,
	}
}

// Create stores a pending CV with the owner's current provider and model and
// starts its generation. The returned record reflects the claim, so it is
// normally already processing.
func (m *Manager) Create(ctx context.Context, owner string, in CreateCV) (*domain.CV, error) {
	desc := strings.TrimSpace(in.Description)
	jd := strings.TrimSpace(in.JobDescription)
	switch {
	case desc == "":
		return nil, domain.Errorf(domain.ErrValidation, "description must not be empty")
	case utf8.RuneCountInString(desc) > maxDescriptionLength:
		return nil, domain.Errorf(domain.ErrValidation, "description must be at most %d characters", maxDescriptionLength)
	case jd == "":
		return nil, domain.Errorf(domain.ErrValidation, "job_description must not be empty")
	}
	var link *string
	if in.Link != nil {
		if l := strings.TrimSpace(*in.Link); l != "" {
			link = &l
		}
	}

	u, err := m.users.GetUser(ctx, owner)
	if err != nil {
		return nil, userErr(err)
	}

	now := m.now().UTC()
	cv := &domain.CV{
		ID:             uuid.New(),
		UserEmail:      owner,
		Description:    desc,
		JobDescription: jd,
		Link:           link,
		Provider:       u.Provider,
		Model:          u.Model,
		Status:         domain.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := m.cvs.InsertCV(ctx, cv); err != nil {
		return nil, err
	}
	m.logger.Info("cv created", "cv_id", cv.ID, "provider", cv.Provider, "model", cv.Model)

	if _, err := m.start(ctx, cv); err != nil {
		// the record stays pending and the janitor dispatches it later
		m.logger.Error("dispatch failed", "cv_id", cv.ID, "error", err)
	}
	return cv, nil
}

// Run starts generation for a pending CV. It returns a nil Task when the CV
// is no longer pending, so repeated calls produce a single run.
func (m *Manager) Run(ctx context.Context, id uuid.UUID) (*Task, error) {
	cv, err := m.cvs.GetCV(ctx, id)
	if err != nil {
		return nil, err
	}
	if cv.Status != domain.StatusPending {
		m.logger.Debug("run skipped", "cv_id", id, "status", cv.Status)
		return nil, nil
	}
	return m.start(ctx, cv)
}

// start claims cv (pending -> processing) and spawns its run. Losing the
// claim to a concurrent caller yields a nil Task.
func (m *Manager) start(ctx context.Context, cv *domain.CV) (*Task, error) {
	now := m.now().UTC()
	ok, err := m.cvs.TransitionCV(ctx, cv.ID, domain.Transition{
		From: domain.StatusPending,
		To:   domain.StatusProcessing,
		At:   now,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	cv.Status, cv.UpdatedAt = domain.StatusProcessing, now
	m.announce(cv.Snapshot())

	t := &Task{CVID: cv.ID, done: make(chan struct{})}
	job := *cv
	m.wg.Add(1)
	go m.execute(&job, t)
	return t, nil
}

// execute runs outside any request. Every failure, panics included, ends in
// a failed record.
func (m *Manager) execute(cv *domain.CV, t *Task) {
	defer m.wg.Done()
	defer close(t.done)

	ctx := context.Background()
	start := time.Now()
	log := m.logger.With("cv_id", cv.ID, "provider", cv.Provider, "model", cv.Model)
	log.Info("generation started")

	result, err := m.generate(ctx, cv)
	t.status = m.finish(ctx, cv, result, err)

	if err != nil {
		log.Warn("generation failed", "error", err, "duration", time.Since(start))
		return
	}
	log.Info("generation completed", "duration", time.Since(start))
}

func (m *Manager) generate(ctx context.Context, cv *domain.CV) (result *model.CVContent, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("panic during generation: %v", r)
		}
	}()

	u, err := m.users.GetUser(ctx, cv.UserEmail)
	if err != nil {
		return nil, userErr(err)
	}
	key, err := m.keys.ResolveAPIKey(ctx, cv.UserEmail, cv.Provider)
	if err != nil {
		return nil, err
	}
	out, err := m.optimizer.Optimize(ctx, ai.Request{
		JobDescription: cv.JobDescription,
		BaseContent:    u.CVContent,
		Provider:       cv.Provider,
		Model:          cv.Model,
		APIKey:         key,
	})
	if err != nil {
		return nil, classifyAIError(err)
	}
	content, err := model.Decode(out)
	if err != nil {
		return nil, classifyAIError(fmt.Errorf("%w: %v", ai.ErrMalformedResponse, err))
	}
	// a result that cannot be rendered would only fail later at download
	if _, err := m.renderer.Preview(u.PersonalData, content); err != nil {
		return nil, err
	}
	return content, nil
}

// finish writes the terminal status. It is the only place a run writes one.
func (m *Manager) finish(ctx context.Context, cv *domain.CV, result *model.CVContent, runErr error) domain.Status {
	tr := domain.Transition{From: domain.StatusProcessing, To: domain.StatusCompleted, Result: result, At: m.now().UTC()}
	if runErr != nil {
		msg := FailureMessage(runErr)
		tr.To, tr.Result, tr.ErrorMessage = domain.StatusFailed, nil, &msg
	}

	ok, err := m.cvs.TransitionCV(ctx, cv.ID, tr)
	switch {
	case err != nil:
		m.logger.Error("terminal write failed", "cv_id", cv.ID, "status", tr.To, "error", err)
		return domain.StatusProcessing
	case !ok:
		// deleted or already failed by the janitor
		m.logger.Warn("terminal write skipped", "cv_id", cv.ID, "status", tr.To)
		return tr.To
	}

	cv.Status, cv.CVOptimized, cv.ErrorMessage, cv.UpdatedAt = tr.To, tr.Result, tr.ErrorMessage, tr.At
	m.announce(cv.Snapshot())
	return tr.To
}

// kindError tags err with a domain kind without changing its text.
type kindError struct {
	kind error
	err  error
}

func (e *kindError) Error() string        { return e.err.Error() }
func (e *kindError) Is(target error) bool { return target == e.kind }
func (e *kindError) Unwrap() error        { return e.err }

func classifyAIError(err error) error {
	var pe *ai.ProviderError
	switch {
	case errors.As(err, &pe):
		return &kindError{kind: domain.ErrProvider, err: err}
	case errors.Is(err, ai.ErrMalformedResponse):
		return &kindError{kind: domain.ErrMalformedResponse, err: err}
	default:
		return err
	}
}

// FailureMessage turns a run error into the text stored on the CV.
func FailureMessage(err error) string {
	var de *domain.Error
	var pe *ai.ProviderError
	switch {
	case errors.As(err, &pe):
		return "AI provider error: " + pe.Error()
	case errors.Is(err, ai.ErrMalformedResponse):
		return "The AI response could not be used: " + err.Error()
	case errors.Is(err, ai.ErrUnknownProvider):
		return "Unsupported AI provider"
	case errors.As(err, &de):
		return de.Message
	case errors.Is(err, domain.ErrRender):
		return "The generated CV could not be rendered"
	default:
		return "Unexpected error while generating the CV"
	}
}

func (m *Manager) announce(s domain.StatusSnapshot) {
	ctx := context.Background()
	m.cacheStatus(ctx, s)
	m.cache.Publish(ctx, s)
}

// cacheStatus stores s, then drops it again if the CV is gone. Delete removes
// the record before the cache entry, so a Delete that raced the write either
// clears the entry itself or is seen by the check here.
func (m *Manager) cacheStatus(ctx context.Context, s domain.StatusSnapshot) {
	m.cache.SetStatus(ctx, s)
	if _, err := m.cvs.GetCV(ctx, s.ID); errors.Is(err, domain.ErrNotFound) {
		m.cache.DeleteStatus(ctx, s.ID)
	}
}

// Wait blocks until all runs started by m have finished or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// load fetches a CV on behalf of requester.
func (m *Manager) load(ctx context.Context, id uuid.UUID, requester string) (*domain.CV, error) {
	cv, err := m.cvs.GetCV(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Errorf(domain.ErrNotFound, "CV not found")
	}
	if err != nil {
		return nil, err
	}
	if cv.UserEmail != requester {
		return nil, domain.Errorf(domain.ErrForbidden, "Not authorized to access this CV")
	}
	return cv, nil
}

func (m *Manager) Get(ctx context.Context, id uuid.UUID, requester string) (*domain.CV, error) {
	return m.load(ctx, id, requester)
}

// List returns the requester's CVs, newest first.
func (m *Manager) List(ctx context.Context, owner string) ([]domain.CV, error) {
	return m.cvs.ListCVs(ctx, owner)
}

// Status is the cheap read used for polling.
func (m *Manager) Status(ctx context.Context, id uuid.UUID, requester string) (domain.StatusSnapshot, error) {
	if s, ok := m.cache.GetStatus(ctx, id); ok {
		if s.Owner != requester {
			return domain.StatusSnapshot{}, domain.Errorf(domain.ErrForbidden, "Not authorized to access this CV")
		}
		return *s, nil
	}
	cv, err := m.load(ctx, id, requester)
	if err != nil {
		return domain.StatusSnapshot{}, err
	}
	s := cv.Snapshot()
	m.cacheStatus(ctx, s)
	return s, nil
}

func (m *Manager) Delete(ctx context.Context, id uuid.UUID, requester string) error {
	if _, err := m.load(ctx, id, requester); err != nil {
		return err
	}
	if err := m.cvs.DeleteCV(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Errorf(domain.ErrNotFound, "CV not found")
		}
		return err
	}
	m.cache.DeleteStatus(ctx, id)
	m.logger.Info("cv deleted", "cv_id", id)
	return nil
}

// PDF renders a completed CV. The filename is derived from its description.
func (m *Manager) PDF(ctx context.Context, id uuid.UUID, requester string) ([]byte, string, error) {
	cv, err := m.load(ctx, id, requester)
	if err != nil {
		return nil, "", err
	}
	if cv.Status != domain.StatusCompleted || cv.CVOptimized == nil {
		return nil, "", domain.Errorf(domain.ErrNotReady, "CV is not ready. Current status: %s", cv.Status)
	}
	u, err := m.users.GetUser(ctx, requester)
	if err != nil {
		return nil, "", userErr(err)
	}
	pdf, err := m.renderer.Render(ctx, u.PersonalData, cv.CVOptimized)
	if err != nil {
		return nil, "", err
	}
	return pdf, cv.Description + ".pdf", nil
}

// Recovery is the outcome of one RecoverStale sweep.
type Recovery struct {
	Failed     int
	Dispatched int
}

// RecoverStale fails processing CVs untouched since before and dispatches
// pending ones that were never claimed, e.g. after a restart.
func (m *Manager) RecoverStale(ctx context.Context, before time.Time) (Recovery, error) {
	var rec Recovery

	stuck, err := m.cvs.ListStaleCVs(ctx, domain.StatusProcessing, before)
	if err != nil {
		return rec, err
	}
	for i := range stuck {
		cv := &stuck[i]
		msg := interruptedMessage
		tr := domain.Transition{From: domain.StatusProcessing, To: domain.StatusFailed, ErrorMessage: &msg, At: m.now().UTC()}
		ok, err := m.cvs.TransitionCV(ctx, cv.ID, tr)
		if err != nil {
			return rec, err
		}
		if !ok {
			continue
		}
		cv.Status, cv.ErrorMessage, cv.UpdatedAt = tr.To, tr.ErrorMessage, tr.At
		m.announce(cv.Snapshot())
		rec.Failed++
	}

	pending, err := m.cvs.ListStaleCVs(ctx, domain.StatusPending, before)
	if err != nil {
		return rec, err
	}
	for i := range pending {
		t, err := m.start(ctx, &pending[i])
		if err != nil {
			return rec, err
		}
		if t != nil {
			rec.Dispatched++
		}
	}
	return rec, nil
}
