package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"travel-marketplace/internal/apperrors"
	"travel-marketplace/internal/models"
	"travel-marketplace/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type UserService struct {
	store     repository.Store
	validator *ValidationHelper
	logger    zerolog.Logger
	now       func() time.Time
}

func NewUserService(store repository.Store, logger zerolog.Logger) *UserService {
	return &UserService{
		store:     store,
		validator: NewValidationHelper(),
		logger:    logger,
		now:       utcNow,
	}
}

func (s *UserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	// Admins are provisioned out of band; self-registration is client or agency.
	switch req.Role {
	case string(models.RoleClient), string(models.RoleAgency):
	default:
		req.Role = string(models.RoleClient)
	}
	if req.Role != string(models.RoleAgency) {
		req.AgencyProfile = nil
	}

	email := strings.ToLower(req.Email)
	_, err := s.store.Users().GetByEmail(ctx, email)
	if err == nil {
		return nil, apperrors.Conflict("user with this email already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Error().Err(err).Msg("Error checking existing user")
		return nil, fmt.Errorf("database error: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error hashing password")
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &models.User{
		ID:            newID(),
		Name:          req.Name,
		Email:         email,
		PasswordHash:  string(hashedPassword),
		Role:          req.Role,
		WalletBalance: decimal.Zero,
		AgencyProfile: req.AgencyProfile,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Users().Insert(ctx, user); err != nil {
		s.logger.Error().Err(err).Msg("Error creating user")
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Str("role", user.Role).Msg("User registered successfully")
	return user, nil
}

func (s *UserService) Authenticate(ctx context.Context, req *models.LoginRequest) (*models.User, error) {
	if req.Email == "" || req.Password == "" {
		return nil, apperrors.Validation("email and password are required")
	}

	user, err := s.store.Users().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Error querying user")
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn().Str("email", req.Email).Msg("Failed authentication attempt")
		return nil, ErrInvalidCredentials
	}

	s.logger.Info().Str("user_id", user.ID).Msg("User authenticated successfully")
	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.store.Users().Get(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user", userID)
	}
	return user, nil
}

func (s *UserService) ListAgencies(ctx context.Context) ([]*models.User, error) {
	return s.store.Users().ListByRole(ctx, models.RoleAgency)
}

// EligibleAgencies returns the agencies that serve a route touching either city.
func (s *UserService) EligibleAgencies(ctx context.Context, from, to string) ([]*models.User, error) {
	return eligibleAgencies(ctx, s.store, from, to)
}

func eligibleAgencies(ctx context.Context, repos repository.Repositories, from, to string) ([]*models.User, error) {
	agencies, err := repos.Users().ListByRole(ctx, models.RoleAgency)
	if err != nil {
		return nil, err
	}
	var out []*models.User
	for _, a := range agencies {
		if a.AgencyProfile.Serves(from, to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *UserService) HasRole(ctx context.Context, userID string, role models.UserRole) (bool, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.Role == string(role), nil
}
