package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// RepositoryPort describes user storage used by Service.
type RepositoryPort interface {
	CreateUser(ctx context.Context, u User) (User, error)
	FindByUsername(ctx context.Context, scope Scope, username string) (User, error)
}

// Service wraps authentication business rules.
type Service struct {
	repo   RepositoryPort
	tokens *TokenStore
	ttl    time.Duration
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, tokens *TokenStore, ttl time.Duration) *Service {
	return &Service{repo: repo, tokens: tokens, ttl: ttl}
}

// RegisterInput carries registration fields for either portal.
type RegisterInput struct {
	OrgID     int64
	Username  string
	Password  string
	Email     string
	Role      string
	FirstName string
	LastName  string
}

// Register creates a portal account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, scope Scope, input RegisterInput) (User, error) {
	if strings.TrimSpace(input.Username) == "" || len(input.Password) < 8 {
		return User{}, fmt.Errorf("%w: username and password (min 8 chars) required", ErrValidation)
	}
	if input.OrgID == 0 {
		return User{}, fmt.Errorf("%w: organisation id required", ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return s.repo.CreateUser(ctx, User{
		Scope:        scope,
		OrgID:        input.OrgID,
		Username:     input.Username,
		Email:        input.Email,
		Role:         input.Role,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: string(hash),
	})
}

// Login validates credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, scope Scope, username, password string) (User, string, error) {
	user, err := s.repo.FindByUsername(ctx, scope, username)
	if err != nil {
		return User{}, "", ErrInvalidCredentials
	}
	if !user.IsActive {
		return User{}, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, "", ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(ctx, Actor{
		Scope:  scope,
		UserID: user.ID,
		OrgID:  user.OrgID,
		Role:   user.Role,
	}, s.ttl)
	if err != nil {
		return User{}, "", err
	}
	return user, token, nil
}

// Logout revokes a bearer token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}
