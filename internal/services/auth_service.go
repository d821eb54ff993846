package services

import (
	"context"
	"errors"
	"time"

	"schemaboard/internal/models"
	"schemaboard/internal/repositories"
	"schemaboard/internal/utils"
)

const (
	AccessTokenDuration  = 15 * time.Minute
	RefreshTokenDuration = 30 * 24 * time.Hour
)

type AuthService struct {
	userRepo    *repositories.UserRepository
	sessionRepo *repositories.SessionRepository
	redisRepo   *repositories.RedisRepository
}

func NewAuthService(
	userRepo *repositories.UserRepository,
	sessionRepo *repositories.SessionRepository,
	redisRepo *repositories.RedisRepository,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		redisRepo:   redisRepo,
	}
}

func (s *AuthService) Register(user *models.User) (string, string, error) {
	// 1. Check if user already exists
	existing, _ := s.userRepo.FindUserByEmail(user.Email)
	if existing != nil {
		return "", "", errors.New("user already exists")
	}

	// 2. Hash password before saving
	hashedPassword, err := utils.Hash(user.Password)
	if err != nil {
		return "", "", err
	}
	user.PasswordHash = string(hashedPassword)
	user.Password = ""

	// 3. Save user in DB
	if err := s.userRepo.Create(user); err != nil {
		return "", "", err
	}

	return s.issueTokens(user)
}

func (s *AuthService) Login(email, password string) (string, string, error) {
	user, err := s.userRepo.FindUserByEmail(email)
	if err != nil || user == nil {
		return "", "", errors.New("user not found")
	}

	if err := utils.VerifyPassword(user.PasswordHash, password); err != nil {
		return "", "", errors.New("invalid password")
	}

	if err := s.userRepo.TouchLastLogin(user.ID); err != nil {
		return "", "", err
	}

	return s.issueTokens(user)
}

// Refresh validates the refresh token from the HttpOnly cookie and rotates
// the token pair. The session row must exist and not be revoked.
func (s *AuthService) Refresh(refreshToken string) (string, string, error) {
	claims, err := utils.VerifyJWT(refreshToken, utils.RefreshTokenSecret)
	if err != nil {
		return "", "", errors.New("invalid or expired refresh token")
	}

	session, err := s.sessionRepo.FindByToken(refreshToken)
	if err != nil || session.IsRevoked {
		return "", "", errors.New("refresh token revoked")
	}

	user, err := s.userRepo.FindUserByID(claims.UserID)
	if err != nil || user == nil {
		return "", "", errors.New("user not found")
	}

	// Rotation: the old session is dead as soon as the new pair exists.
	if err := s.sessionRepo.Revoke(refreshToken); err != nil {
		return "", "", err
	}

	return s.issueTokens(user)
}

// Logout revokes the refresh session and blacklists the presented access
// token for its remaining lifetime.
func (s *AuthService) Logout(refreshToken, accessJTI string) error {
	if refreshToken != "" {
		if err := s.sessionRepo.Revoke(refreshToken); err != nil {
			return err
		}
	}
	if accessJTI != "" {
		return s.redisRepo.Blacklist(context.Background(), accessJTI, AccessTokenDuration)
	}
	return nil
}

func (s *AuthService) issueTokens(user *models.User) (string, string, error) {
	accessToken, accessJTI, err := utils.GenerateJWT(user.ID, AccessTokenDuration, utils.AccessTokenSecret)
	if err != nil {
		return "", "", err
	}

	refreshToken, _, err := utils.GenerateJWT(user.ID, RefreshTokenDuration, utils.RefreshTokenSecret)
	if err != nil {
		return "", "", err
	}

	session := &models.Session{
		UserID:       user.ID,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(RefreshTokenDuration),
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return "", "", err
	}

	if err := s.redisRepo.StoreSession(context.Background(), accessJTI, user.ID.String(), AccessTokenDuration); err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}
