package usecase

import (
	"context"
	"time"

	"cv-optimizer/internal/domain"
	"cv-optimizer/internal/model"
	"cv-optimizer/pkg/ai"

	"github.com/google/uuid"
)

// UserRepo stores accounts with their settings and profile.
// Lookups of a missing user return domain.ErrNotFound.
type UserRepo interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, email string) (*domain.User, error)
	UpdateSettings(ctx context.Context, email, provider, model string) error
	// MergePersonalData applies the non-nil fields of patch and returns the result.
	MergePersonalData(ctx context.Context, email string, patch model.PersonalDataPatch) (model.PersonalData, error)
	UpdateCVContent(ctx context.Context, email string, content map[string]any) error
}

// APIKeyRepo keeps at most one key per (user, provider).
type APIKeyRepo interface {
	UpsertAPIKey(ctx context.Context, rec *domain.APIKeyRecord) error
	GetAPIKey(ctx context.Context, email, provider string) (*domain.APIKeyRecord, error)
	DeleteAPIKey(ctx context.Context, email, provider string) error
}

type CVRepo interface {
	InsertCV(ctx context.Context, cv *domain.CV) error
	GetCV(ctx context.Context, id uuid.UUID) (*domain.CV, error)
	ListCVs(ctx context.Context, owner string) ([]domain.CV, error)
	// TransitionCV applies t only if the record is still in t.From and
	// reports whether it did.
	TransitionCV(ctx context.Context, id uuid.UUID, t domain.Transition) (bool, error)
	DeleteCV(ctx context.Context, id uuid.UUID) error
	ListStaleCVs(ctx context.Context, status domain.Status, before time.Time) ([]domain.CV, error)
}

type Store interface {
	UserRepo
	APIKeyRepo
	CVRepo
}

// Optimizer produces optimized CV content.
type Optimizer interface {
	Optimize(ctx context.Context, req ai.Request) (map[string]any, error)
}

// Renderer is the document renderer as seen by the use cases.
type Renderer interface {
	Preview(pd model.PersonalData, c *model.CVContent) (string, error)
	PreviewMap(pd model.PersonalData, content map[string]any) (string, error)
	Render(ctx context.Context, pd model.PersonalData, c *model.CVContent) ([]byte, error)
}

// KeyCipher encrypts API keys at rest.
type KeyCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(encoded string) (string, error)
}

// StatusCache mirrors CV status snapshots for cheap polling and fans out
// lifecycle events. Implementations must tolerate being unavailable.
type StatusCache interface {
	GetStatus(ctx context.Context, id uuid.UUID) (*domain.StatusSnapshot, bool)
	SetStatus(ctx context.Context, s domain.StatusSnapshot)
	DeleteStatus(ctx context.Context, id uuid.UUID)
	Publish(ctx context.Context, s domain.StatusSnapshot)
}

type noopCache struct{}

func (noopCache) GetStatus(context.Context, uuid.UUID) (*domain.StatusSnapshot, bool) { return nil, false }
func (noopCache) SetStatus(context.Context, domain.StatusSnapshot)                    {}
func (noopCache) DeleteStatus(context.Context, uuid.UUID)                             {}
func (noopCache) Publish(context.Context, domain.StatusSnapshot)                      {}
