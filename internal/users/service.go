package users

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"uikit-analytics/internal/rbac"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("users: email already registered")
	ErrInvalidCredentials = errors.New("users: invalid credentials")
	ErrNotFound           = errors.New("users: not found")
)

// Repository is the persistence contract for principals.
type Repository interface {
	// Create inserts a new user. Returns ErrEmailTaken on a duplicate email.
	Create(ctx context.Context, u User) error
	FindByEmail(ctx context.Context, email string) (User, error)
}

const bcryptCost = 10

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Register creates a principal. The password is hashed at write time and the
// plaintext is never stored. A duplicate email returns ErrEmailTaken; exactly
// one principal exists per email.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (User, error) {
	if s.repo == nil {
		return User{}, errors.New("users: repository not configured")
	}

	name := strings.TrimSpace(req.Name)
	if n := utf8.RuneCountInString(name); n < MinNameLen || n > MaxNameLen {
		return User{}, &ValidationError{Field: "name", Message: "name must be 2 to 80 characters"}
	}

	email, err := normalizeEmail(req.Email)
	if err != nil {
		return User{}, &ValidationError{Field: "email", Message: "email must be a valid address"}
	}

	if len(req.Password) < MinPasswordLen {
		return User{}, &ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}

	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = rbac.DefaultRole
	}
	if !rbac.ValidRole(role) {
		return User{}, &ValidationError{Field: "role", Message: "role must be one of admin, designer, developer"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return User{}, err
	}

	u := User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    s.clock().UTC(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Login verifies credentials. Unknown emails and wrong passwords return the
// same ErrInvalidCredentials so responses do not reveal which one failed.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	if s.repo == nil {
		return User{}, errors.New("users: repository not configured")
	}

	normalized, err := normalizeEmail(email)
	if err != nil {
		return User{}, ErrInvalidCredentials
	}
	if password == "" {
		return User{}, ErrInvalidCredentials
	}

	u, err := s.repo.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", errors.New("empty email")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", errors.New("invalid email")
	}
	return email, nil
}
