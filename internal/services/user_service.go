package services

import (
	"errors"

	"github.com/google/uuid"

	"schemaboard/internal/models"
	"schemaboard/internal/repositories"
)

type UserService struct {
	userRepo    *repositories.UserRepository
	sessionRepo *repositories.SessionRepository
}

func NewUserService(userRepo *repositories.UserRepository, sessionRepo *repositories.SessionRepository) *UserService {
	return &UserService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
	}
}

func (s *UserService) GetByID(id uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.FindUserByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}
	return user, nil
}

func (s *UserService) UpdateProfile(id uuid.UUID, name string) (*models.User, error) {
	if err := s.userRepo.UpdateProfile(id, name); err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// Delete removes the account and revokes every outstanding session.
func (s *UserService) Delete(id uuid.UUID) error {
	if err := s.sessionRepo.RevokeAllForUser(id.String()); err != nil {
		return err
	}
	return s.userRepo.Delete(id)
}
