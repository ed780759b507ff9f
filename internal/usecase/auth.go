package usecase

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"cv-optimizer/internal/auth"
	"cv-optimizer/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// Session is what a successful signup or login hands back to the client.
type Session struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Email       string `json:"email"`
}

type AuthService struct {
	users  UserRepo
	tokens auth.TokenService
	now    func() time.Time
}

func NewAuthService(users UserRepo, tokens auth.TokenService) *AuthService {
	return &AuthService{users: users, tokens: tokens, now: time.Now}
}

// Signup creates the account with the default provider and model and logs it in.
func (s *AuthService) Signup(ctx context.Context, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, err
	}
	if len(password) < minPasswordLength {
		return Session{}, domain.Errorf(domain.ErrValidation, "Password must be at least %d characters", minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, err
	}

	now := s.now().UTC()
	err = s.users.CreateUser(ctx, &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		Provider:     domain.DefaultProvider,
		Model:        domain.DefaultModel,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		return Session{}, domain.Errorf(domain.ErrAlreadyExists, "Email already registered")
	}
	if err != nil {
		return Session{}, err
	}
	return s.issue(email)
}

// Login checks the credentials. Unknown email and wrong password fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	invalid := domain.Errorf(domain.ErrAuth, "Invalid email or password")

	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, invalid
	}
	u, err := s.users.GetUser(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return Session{}, invalid
	}
	if err != nil {
		return Session{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return Session{}, invalid
	}
	return s.issue(email)
}

// Authenticate resolves a bearer token to the email of an existing user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (string, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return "", domain.Wrap(domain.ErrAuth, err, "Could not validate credentials")
	}
	email := claims.Email()
	if _, err := s.users.GetUser(ctx, email); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.Errorf(domain.ErrAuth, "Could not validate credentials")
		}
		return "", err
	}
	return email, nil
}

func (s *AuthService) issue(email string) (Session, error) {
	tok, err := s.tokens.Issue(email)
	if err != nil {
		return Session{}, err
	}
	return Session{AccessToken: tok, TokenType: auth.TokenTypeBearer, Email: email}, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.Errorf(domain.ErrValidation, "Invalid email address")
	}
	return email, nil
}
