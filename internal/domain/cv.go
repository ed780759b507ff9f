package domain

import (
	"fmt"
	"strings"
	"time"

	"cv-optimizer/internal/model"

	"github.com/google/uuid"
)

// Status is the generation state of a CV.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var AllStatuses = []Status{StatusPending, StatusProcessing, StatusCompleted, StatusFailed}

// validTransitions lists the statuses reachable from each status.
// Terminal statuses map to nothing.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusCompleted:  {},
	StatusFailed:     {},
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := validTransitions[st]; !ok {
		return "", fmt.Errorf("%w: unknown status %q", ErrValidation, s)
	}
	return st, nil
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to Status) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CV is one optimization request and its outcome.
type CV struct {
	ID             uuid.UUID        `json:"id"`
	UserEmail      string           `json:"user_email"`
	Description    string           `json:"description"`
	JobDescription string           `json:"job_description"`
	Link           *string          `json:"link"`
	Provider       string           `json:"provider"`
	Model          string           `json:"model"`
	Status         Status           `json:"status"`
	CVOptimized    *model.CVContent `json:"cv_optimized"`
	ErrorMessage   *string          `json:"error_message"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// Transition is a status change applied atomically together with its payload.
type Transition struct {
	From         Status
	To           Status
	Result       *model.CVContent
	ErrorMessage *string
	At           time.Time
}

// StatusSnapshot is what pollers see.
type StatusSnapshot struct {
	ID           uuid.UUID `json:"id"`
	Owner        string    `json:"-"`
	Status       Status    `json:"status"`
	ErrorMessage *string   `json:"error_message"`
}

func (c *CV) Snapshot() StatusSnapshot {
	return StatusSnapshot{ID: c.ID, Owner: c.UserEmail, Status: c.Status, ErrorMessage: c.ErrorMessage}
}
