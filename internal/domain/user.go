package domain

import (
	"time"

	"cv-optimizer/internal/model"
)

const (
	DefaultProvider = "google"
	DefaultModel    = "gemini-2.5-flash"
)

type User struct {
	Email        string
	PasswordHash string
	Provider     string
	Model        string
	PersonalData model.PersonalData
	CVContent    map[string]any
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// APIKeyRecord holds one encrypted provider key of a user.
type APIKeyRecord struct {
	UserEmail    string
	Provider     string
	EncryptedKey string
	LastChars    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Display masks the key down to its last characters.
func (r *APIKeyRecord) Display() string {
	return "•••" + r.LastChars
}
