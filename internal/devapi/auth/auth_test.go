package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, rotate bool) (*Service, *time.Time) {
	t.Helper()

	s, err := New(Config{
		JWTSecret:     "test-secret",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		RotateRefresh: rotate,
	}, "admin", "p@ss")
	require.NoError(t, err)

	now := time.Now().UTC()
	s.SetClock(func() time.Time { return now })
	return s, &now
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, "admin", "x")
	require.Error(t, err)

	_, err = New(Config{JWTSecret: "s"}, "", "x")
	require.Error(t, err)
}

func TestLogin(t *testing.T) {
	t.Parallel()

	s, _ := newTestService(t, false)
	ctx := context.Background()

	_, err := s.Login(ctx, "admin", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Login(ctx, "root", "p@ss")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	pair, err := s.Login(ctx, "admin", "p@ss")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	user, err := s.Validate(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "admin", user)
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	s, now := newTestService(t, false)

	pair, err := s.Login(context.Background(), "admin", "p@ss")
	require.NoError(t, err)

	_, err = s.Validate("garbage")
	require.ErrorIs(t, err, ErrInvalidToken)

	// Чужая подпись.
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Username:         "admin",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = s.Validate(forged)
	require.ErrorIs(t, err, ErrInvalidToken)

	// Истёкший.
	later := now.Add(2 * time.Minute)
	s.SetClock(func() time.Time { return later })
	_, err = s.Validate(pair.AccessToken)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	s, now := newTestService(t, false)
	ctx := context.Background()

	pair, err := s.Login(ctx, "admin", "p@ss")
	require.NoError(t, err)

	out, err := s.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, out.Access)
	require.Empty(t, out.Refresh)

	user, err := s.Validate(out.Access)
	require.NoError(t, err)
	require.Equal(t, "admin", user)

	// Без ротации refresh остаётся рабочим.
	_, err = s.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	_, err = s.Refresh(ctx, "unknown")
	require.ErrorIs(t, err, ErrInvalidToken)

	later := now.Add(time.Hour)
	s.SetClock(func() time.Time { return later })
	_, err = s.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefresh_Rotation(t *testing.T) {
	t.Parallel()

	s, _ := newTestService(t, true)
	ctx := context.Background()

	pair, err := s.Login(ctx, "admin", "p@ss")
	require.NoError(t, err)

	out, err := s.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, out.Refresh)
	require.NotEqual(t, pair.RefreshToken, out.Refresh)

	_, err = s.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrTokenRevoked)

	_, err = s.Refresh(ctx, out.Refresh)
	require.NoError(t, err)
}

func TestHashRefresh_Stable(t *testing.T) {
	t.Parallel()

	require.Equal(t, hashRefresh("abc"), hashRefresh("abc"))
	require.NotEqual(t, hashRefresh("abc"), hashRefresh("abd"))
	require.NotContains(t, hashRefresh("abc"), "abc")
}
