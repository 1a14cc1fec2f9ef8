package httpapi

import (
	"context"
	"strings"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/store/memory"
)

const testSecret = "test-secret-key-that-is-long-enough!"

func TestEnsureOwnerBootstrapsEmptyStore(t *testing.T) {
	repo := memory.New()
	manager := NewAuthManager(testSecret, time.Hour, repo)
	ctx := context.Background()

	created, err := manager.EnsureOwner(ctx, "Boss", "s3cret-pass")
	require.NoError(t, err)
	assert.True(t, created)

	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "boss", users[0].Username)
	assert.Equal(t, domain.RoleOwner, users[0].Role)
	assert.True(t, strings.HasPrefix(users[0].Password, "$2"))

	created, err = manager.EnsureOwner(ctx, "other", "another-pass")
	require.NoError(t, err)
	assert.False(t, created)

	resp, err := manager.Login(ctx, domain.LoginRequest{Username: "boss", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, resp.Role)
}

func TestEnsureOwnerRejectsShortPassword(t *testing.T) {
	manager := NewAuthManager(testSecret, time.Hour, memory.New())
	_, err := manager.EnsureOwner(context.Background(), "owner", "short")
	assert.Error(t, err)
}

func TestLoginAndParseTokenRoundTrip(t *testing.T) {
	manager := NewAuthManager(testSecret, time.Hour, memory.NewSeeded("acme", zap.NewNop()))
	ctx := context.Background()

	resp, err := manager.Login(ctx, domain.LoginRequest{Username: " Cashier ", Password: "cashier12345"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCashier, resp.Role)

	actor, err := manager.ParseToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.Actor{Username: "cashier", Role: domain.RoleCashier}, actor)

	_, err = manager.Login(ctx, domain.LoginRequest{Username: "cashier", Password: "nope"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = manager.Login(ctx, domain.LoginRequest{Username: "ghost", Password: "cashier12345"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseTokenRejectsForeignAndExpiredTokens(t *testing.T) {
	manager := NewAuthManager(testSecret, time.Hour, memory.New())

	other := NewAuthManager("a-completely-different-secret-value", time.Hour, memory.New())
	foreign, err := other.sign("owner", domain.RoleOwner, time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = manager.ParseToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := manager.sign("owner", domain.RoleOwner, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	_, err = manager.ParseToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, ledgerClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{Subject: "owner", Issuer: tokenIssuer},
		Role:             domain.RoleOwner,
	})
	raw, err := unsigned.SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = manager.ParseToken(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestInactiveAccountCannotLogin(t *testing.T) {
	repo := memory.New()
	hash, err := hashPassword("password-1")
	require.NoError(t, err)
	require.NoError(t, repo.CreateUser(context.Background(), domain.UserAccount{
		Username: "retired", Password: hash, Role: domain.RoleCashier, Active: false,
	}))

	manager := NewAuthManager(testSecret, time.Hour, repo)
	_, err = manager.Login(context.Background(), domain.LoginRequest{Username: "retired", Password: "password-1"})
	assert.ErrorIs(t, err, ErrInactiveAccount)
}
