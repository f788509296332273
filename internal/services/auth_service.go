package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"neuroscan/config"
	"neuroscan/internal/domain/user"
	"neuroscan/internal/repository"
	neuroscan_errors "neuroscan/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
	accessTTL time.Duration
}

func NewAuthService(userRepo repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: []byte(cfg.JWTSecret),
		accessTTL: time.Duration(cfg.JWTExpiryMin) * time.Minute,
	}
}

type AuthResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresIn   int64     `json:"expiresIn"`
	User        user.User `json:"user"`
}

type AccessClaims struct {
	UserID string `json:"sub"`
	jwt.RegisteredClaims
}

func (s *AuthService) Register(ctx context.Context, username, password string) (AuthResponse, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(password) < 8 {
		return AuthResponse{}, neuroscan_errors.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResponse{}, err
	}

	newUser := &user.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return AuthResponse{}, err
	}

	return s.issueToken(*newUser)
}

func (s *AuthService) Login(ctx context.Context, username, password string) (AuthResponse, error) {
	u, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, neuroscan_errors.ErrNotFound) {
			return AuthResponse{}, neuroscan_errors.ErrUnauthorized
		}
		return AuthResponse{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return AuthResponse{}, neuroscan_errors.ErrUnauthorized
	}
	return s.issueToken(u)
}

func (s *AuthService) GetUser(ctx context.Context, id uuid.UUID) (user.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// ParseToken validates an access token and returns the user id it carries.
func (s *AuthService) ParseToken(tokenString string) (uuid.UUID, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, neuroscan_errors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, neuroscan_errors.ErrUnauthorized
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, neuroscan_errors.ErrUnauthorized
	}
	return id, nil
}

func (s *AuthService) issueToken(u user.User) (AuthResponse, error) {
	now := time.Now()
	claims := AccessClaims{
		UserID: u.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return AuthResponse{}, err
	}
	return AuthResponse{
		AccessToken: signed,
		ExpiresIn:   int64(s.accessTTL.Seconds()),
		User:        u,
	}, nil
}
