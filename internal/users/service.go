package users

import (
	"context"
	"errors"
	"strings"

	"github.com/ghichu/ghichu/internal/models"
	"github.com/oklog/ulid/v2"
)

// Service encapsulates user-related business logic
type Service struct {
	repo UserRepository
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r}
}

// Register stores a new account under a freshly assigned UID.
func (s *Service) Register(ctx context.Context, email string, passwordHash []byte) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, errors.New("email required")
	}
	u := &models.User{
		UID:          strings.ToLower(ulid.Make().String()),
		Email:        email,
		PasswordHash: passwordHash,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *Service) GetByUID(ctx context.Context, uid string) (*models.User, error) {
	return s.repo.GetByUID(ctx, uid)
}

func (s *Service) SetPassword(ctx context.Context, uid string, passwordHash []byte) error {
	return s.repo.UpdatePassword(ctx, uid, passwordHash)
}
