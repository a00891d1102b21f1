// auth выпускает и проверяет токены dev API так же, как это делает
// бэкенд школы (simplejwt): короткий access-JWT (HS256) и непрозрачный
// refresh-секрет, который хранится только в виде хэша.
//
// Service безопасен для конкурентного использования.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/school-admin/internal/models"
	"github.com/pribylovaa/school-admin/internal/pkg/log"
	"github.com/pribylovaa/school-admin/internal/pkg/redact"
)

var (
	// ErrInvalidCredentials — пара логин/пароль неверна.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken — токен некорректен по формату/подписи или неизвестен.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked — refresh-токен отозван (ротация).
	ErrTokenRevoked = errors.New("token revoked")
)

// Config — параметры выпуска токенов.
type Config struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// RotateRefresh — выдавать новый refresh при каждом обновлении
	// и отзывать старый.
	RotateRefresh bool
}

type accessClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type refreshRecord struct {
	username  string
	expiresAt time.Time
	revoked   bool
}

// Service — учётная запись администратора и выданные refresh-токены.
type Service struct {
	cfg Config

	username     string
	passwordHash []byte

	mu     sync.Mutex
	issued map[string]*refreshRecord // sha256(plain) -> запись

	now func() time.Time
}

// New создаёт сервис с одним администратором. Пароль хранится как bcrypt-хэш.
func New(cfg Config, username, password string) (*Service, error) {
	const op = "auth.New"

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%s: empty jwt secret", op)
	}

	if username == "" || password == "" {
		return nil, fmt.Errorf("%s: empty admin credentials", op)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Service{
		cfg:          cfg,
		username:     username,
		passwordHash: hash,
		issued:       make(map[string]*refreshRecord),
		now:          time.Now,
	}, nil
}

// SetClock подменяет источник времени.
func (s *Service) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Service) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().UTC()
}

// Login выдаёт пару токенов по логину/паролю.
func (s *Service) Login(ctx context.Context, username, password string) (models.TokenPair, error) {
	const op = "auth.Login"

	lg := log.From(ctx)

	if username != s.username || bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)) != nil {
		lg.Warn("login_failed",
			slog.String("op", op),
			slog.String("username", redact.Username(username)),
		)
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	now := s.clock()

	access, err := s.generateAccessToken(username, now)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	refresh, err := s.generateRefreshToken(username, now)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh обменивает refresh-токен на новый access.
// При RotateRefresh возвращает и новый refresh, а старый отзывает.
func (s *Service) Refresh(ctx context.Context, plain string) (models.RefreshResponse, error) {
	const op = "auth.Refresh"

	lg := log.From(ctx)
	now := s.clock()
	hash := hashRefresh(plain)

	s.mu.Lock()
	rec, ok := s.issued[hash]
	var err error
	switch {
	case !ok:
		err = ErrInvalidToken
	case rec.revoked:
		err = ErrTokenRevoked
	case !now.Before(rec.expiresAt):
		err = ErrTokenExpired
	}
	if err == nil && s.cfg.RotateRefresh {
		rec.revoked = true
	}
	s.mu.Unlock()

	if err != nil {
		lg.Warn("refresh_rejected",
			slog.String("op", op),
			slog.String("reason", err.Error()),
		)
		return models.RefreshResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	access, err := s.generateAccessToken(rec.username, now)
	if err != nil {
		return models.RefreshResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	out := models.RefreshResponse{Access: access}

	if s.cfg.RotateRefresh {
		out.Refresh, err = s.generateRefreshToken(rec.username, now)
		if err != nil {
			return models.RefreshResponse{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	return out, nil
}

// Validate проверяет access-токен и возвращает имя пользователя.
func (s *Service) Validate(token string) (string, error) {
	const op = "auth.Validate"

	parsed, err := jwt.ParseWithClaims(token, &accessClaims{},
		func(t *jwt.Token) (interface{}, error) {
			return []byte(s.cfg.JWTSecret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid || claims.Username == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return claims.Username, nil
}

// generateAccessToken генерирует access-токен.
func (s *Service) generateAccessToken(username string, now time.Time) (string, error) {
	const op = "auth.generateAccessToken"

	claims := accessClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   username,
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// generateRefreshToken создаёт refresh-токен и запоминает его хэш.
func (s *Service) generateRefreshToken(username string, now time.Time) (string, error) {
	const op = "auth.generateRefreshToken"

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	plain := base64.RawURLEncoding.EncodeToString(b)

	s.mu.Lock()
	s.issued[hashRefresh(plain)] = &refreshRecord{
		username:  username,
		expiresAt: now.Add(s.cfg.RefreshTTL),
	}
	s.mu.Unlock()

	return plain, nil
}

func hashRefresh(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
