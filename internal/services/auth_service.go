package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const (
	accessTokenTTL  = 24 * time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour

	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var ErrWrongTokenType = errors.New("wrong token type")

type AuthService struct {
	secretKey []byte
	logger    zerolog.Logger
}

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

func NewAuthService(secret string, logger zerolog.Logger) *AuthService {
	return &AuthService{
		secretKey: []byte(secret),
		logger:    logger,
	}
}

func (s *AuthService) sign(claims *Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

func (s *AuthService) GenerateToken(userID, email, role string) (string, error) {
	tokenString, err := s.sign(&Claims{UserID: userID, Email: email, Role: role, Type: TokenTypeAccess}, accessTokenTTL)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error generating token")
		return "", err
	}
	return tokenString, nil
}

func (s *AuthService) GenerateRefreshToken(userID string) (string, error) {
	tokenString, err := s.sign(&Claims{UserID: userID, Type: TokenTypeRefresh}, refreshTokenTTL)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error generating refresh token")
		return "", err
	}
	return tokenString, nil
}

// ValidateToken accepts access tokens only.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, TokenTypeAccess)
}

func (s *AuthService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, TokenTypeRefresh)
}

func (s *AuthService) validate(tokenString, tokenType string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secretKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Type != tokenType {
		return nil, ErrWrongTokenType
	}

	return claims, nil
}
