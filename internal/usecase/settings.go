package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"cv-optimizer/internal/cryptox"
	"cv-optimizer/internal/domain"
	"cv-optimizer/pkg/ai"
)

const keyVisibleChars = 4

// Settings is the user's provider choice plus a masked view of the stored key.
type Settings struct {
	Provider      string  `json:"provider"`
	Model         string  `json:"model"`
	APIKeyDisplay *string `json:"api_key_display"`
	HasAPIKey     bool    `json:"has_api_key"`
}

type SettingsUpdate struct {
	Provider string
	Model    string
	// APIKey replaces the stored key for Provider when non-empty.
	APIKey string
}

type SettingsService struct {
	users  UserRepo
	keys   APIKeyRepo
	cipher KeyCipher
	// fallback keys from the server environment, by provider
	fallback map[string]string
	now      func() time.Time
}

func NewSettingsService(users UserRepo, keys APIKeyRepo, cipher KeyCipher, fallback map[string]string) *SettingsService {
	return &SettingsService{users: users, keys: keys, cipher: cipher, fallback: fallback, now: time.Now}
}

func (s *SettingsService) Get(ctx context.Context, email string) (Settings, error) {
	u, err := s.users.GetUser(ctx, email)
	if err != nil {
		return Settings{}, userErr(err)
	}
	out := Settings{Provider: u.Provider, Model: u.Model}
	rec, err := s.keys.GetAPIKey(ctx, email, u.Provider)
	switch {
	case err == nil:
		d := rec.Display()
		out.APIKeyDisplay, out.HasAPIKey = &d, true
	case !errors.Is(err, domain.ErrNotFound):
		return Settings{}, err
	}
	return out, nil
}

// Update stores the provider/model pair and, if given, the encrypted key.
// A key omitted from the update leaves any stored key untouched.
func (s *SettingsService) Update(ctx context.Context, email string, in SettingsUpdate) (Settings, error) {
	provider := strings.TrimSpace(in.Provider)
	modelID := strings.TrimSpace(in.Model)
	p, ok := ai.LookupProvider(provider)
	if !ok {
		return Settings{}, domain.Errorf(domain.ErrValidation, "Unsupported provider: %s", in.Provider)
	}
	if !p.HasModel(modelID) {
		return Settings{}, domain.Errorf(domain.ErrValidation, "Model %s is not available for provider %s", in.Model, provider)
	}

	if err := s.users.UpdateSettings(ctx, email, provider, modelID); err != nil {
		return Settings{}, userErr(err)
	}

	if key := strings.TrimSpace(in.APIKey); key != "" {
		enc, err := s.cipher.Encrypt(key)
		if err != nil {
			return Settings{}, err
		}
		now := s.now().UTC()
		err = s.keys.UpsertAPIKey(ctx, &domain.APIKeyRecord{
			UserEmail:    email,
			Provider:     provider,
			EncryptedKey: enc,
			LastChars:    cryptox.LastChars(key, keyVisibleChars),
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return Settings{}, err
		}
	}
	return s.Get(ctx, email)
}

// DeleteAPIKey removes the key of the currently selected provider.
func (s *SettingsService) DeleteAPIKey(ctx context.Context, email string) error {
	u, err := s.users.GetUser(ctx, email)
	if err != nil {
		return userErr(err)
	}
	err = s.keys.DeleteAPIKey(ctx, email, u.Provider)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Errorf(domain.ErrNotFound, "No API key stored for %s", u.Provider)
	}
	return err
}

// ResolveAPIKey returns the user's own key for provider, else the server's
// fallback key. Neither being available is domain.ErrNoAPIKey.
func (s *SettingsService) ResolveAPIKey(ctx context.Context, email, provider string) (string, error) {
	rec, err := s.keys.GetAPIKey(ctx, email, provider)
	switch {
	case err == nil:
		key, err := s.cipher.Decrypt(rec.EncryptedKey)
		if err != nil {
			return "", domain.Wrap(domain.ErrNoAPIKey, err, "Stored API key could not be decrypted. Please save it again in Settings")
		}
		return key, nil
	case !errors.Is(err, domain.ErrNotFound):
		return "", err
	}
	if key := s.fallback[provider]; key != "" {
		return key, nil
	}
	return "", domain.Errorf(domain.ErrNoAPIKey, "No API key configured for %s. Add one in Settings", provider)
}

func userErr(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Errorf(domain.ErrNotFound, "User not found")
	}
	return err
}
