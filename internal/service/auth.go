package service

import (
	"context"
	"strings"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/repository"
)

// AuthService handles operator sign-up and login against the accounts table.
type AuthService struct {
	repo repository.AccountRepositoryInterface
}

func NewAuthService(repo repository.AccountRepositoryInterface) *AuthService {
	return &AuthService{repo: repo}
}

// SignUp registers a new operator account. Usernames are unique; a taken
// username is reported as such, never silently overwritten.
func (s *AuthService) SignUp(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.ErrValidationFailed
	}

	created, err := s.repo.Create(ctx, username, password)
	if err != nil {
		return err
	}
	if !created {
		return domain.ErrUsernameTaken
	}

	return nil
}

// Login checks the credential pair. A wrong username and a wrong password
// produce the same error.
func (s *AuthService) Login(ctx context.Context, username, password string) error {
	ok, err := s.repo.Verify(ctx, username, password)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidCredentials
	}

	return nil
}
