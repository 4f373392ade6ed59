package services

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-ticketing/internal/models"
	"github.com/smarttransit/bus-ticketing/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

// RoleAdmin is the role carried by fleet administrator tokens
const RoleAdmin = "admin"

// AdminAuthService handles admin authentication against configured credentials
type AdminAuthService struct {
	email        string
	passwordHash []byte
	jwtService   *jwt.Service
	logger       *logrus.Logger
}

// NewAdminAuthService creates a new admin auth service
func NewAdminAuthService(email, passwordHash string, jwtService *jwt.Service, logger *logrus.Logger) *AdminAuthService {
	return &AdminAuthService{
		email:        strings.ToLower(strings.TrimSpace(email)),
		passwordHash: []byte(passwordHash),
		jwtService:   jwtService,
		logger:       logger,
	}
}

// Login authenticates the admin and returns a token pair
func (s *AdminAuthService) Login(ctx context.Context, email, password string) (*models.AdminLoginResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	emailMatch := subtle.ConstantTimeCompare([]byte(email), []byte(s.email)) == 1
	// Always run bcrypt so a wrong email costs the same as a wrong password
	passwordErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if !emailMatch || passwordErr != nil {
		s.logger.WithField("email", email).Warn("Admin login failed")
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.jwtService.GenerateAccessToken(s.email, []string{RoleAdmin})
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwtService.GenerateRefreshToken(s.email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	s.logger.WithField("email", s.email).Info("Admin logged in")

	return &models.AdminLoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtService.AccessTokenExpiry().Seconds()),
		Email:        s.email,
	}, nil
}

// Refresh issues a new access token from a valid refresh token
func (s *AdminAuthService) Refresh(ctx context.Context, refreshToken string) (*models.AdminLoginResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil || claims.Email != s.email {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.jwtService.GenerateAccessToken(s.email, []string{RoleAdmin})
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &models.AdminLoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtService.AccessTokenExpiry().Seconds()),
		Email:        s.email,
	}, nil
}
