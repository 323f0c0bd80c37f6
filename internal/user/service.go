package user

import (
	"context"
	"errors"
	"time"

	"bookstore/internal/auth"
)

type Service struct {
	repo     Repository
	secret   string
	tokenTTL time.Duration
}

func NewService(repo Repository, secret string, tokenTTL time.Duration) *Service {
	return &Service{repo: repo, secret: secret, tokenTTL: tokenTTL}
}

// Register creates a USER account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, username, password string) (User, error) {
	_, err := s.repo.GetByUsername(ctx, username)
	if err == nil {
		return User{}, ErrAlreadyExists
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return User{}, err
	}

	u := &User{
		Username:     username,
		PasswordHash: hash,
		Role:         auth.RoleUser,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}
	return *u, nil
}

// Login checks the credentials and issues an access token carrying the
// user's role.
func (s *Service) Login(ctx context.Context, username, password string) (Token, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Token{}, ErrInvalidCredentials
		}
		return Token{}, err
	}
	if !auth.VerifyPassword(u.PasswordHash, password) {
		return Token{}, ErrInvalidCredentials
	}

	token, _, err := auth.GenerateToken(s.secret, u.ID, u.Role, s.tokenTTL)
	if err != nil {
		return Token{}, err
	}
	return Token{Token: token, ExpiresIn: int(s.tokenTTL.Seconds()), Role: u.Role}, nil
}

// AssignRole sets the role of the named user.
func (s *Service) AssignRole(ctx context.Context, username, role string) (User, error) {
	switch role {
	case auth.RoleAdmin, auth.RoleSeller, auth.RoleUser:
	default:
		return User{}, ErrInvalidRole
	}
	return s.repo.UpdateRole(ctx, username, role)
}
