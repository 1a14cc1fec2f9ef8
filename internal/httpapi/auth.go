package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("account is inactive")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

const tokenIssuer = "ledgerpos"

type AuthManager struct {
	mu        sync.RWMutex
	secret    []byte
	tokenTTL  time.Duration
	userStore store.UserStore
	users     map[string]credential
	now       func() time.Time
}

type credential struct {
	password string
	role     string
	active   bool
}

type ledgerClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, userStore store.UserStore) *AuthManager {
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthManager{
		secret:    []byte(secret),
		tokenTTL:  tokenTTL,
		userStore: userStore,
		users:     make(map[string]credential),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// EnsureOwner creates an owner account when the user store holds no users
// yet. It is a no-op once any account exists.
func (a *AuthManager) EnsureOwner(ctx context.Context, username string, password string) (bool, error) {
	users, err := a.userStore.ListUsers(ctx)
	if err != nil {
		return false, err
	}
	if len(users) > 0 {
		return false, nil
	}
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || len(password) < 8 {
		return false, fmt.Errorf("bootstrap owner requires a username and a password of at least 8 characters")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return false, err
	}
	err = a.userStore.CreateUser(ctx, domain.UserAccount{
		Username:  username,
		Password:  hash,
		Role:      domain.RoleOwner,
		Active:    true,
		CreatedAt: a.now(),
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	if err := a.refresh(ctx); err != nil {
		return domain.LoginResponse{}, err
	}
	username := strings.ToLower(strings.TrimSpace(req.Username))
	a.mu.RLock()
	cred, ok := a.users[username]
	a.mu.RUnlock()
	if !ok || !verifyPassword(cred.password, req.Password) {
		return domain.LoginResponse{}, ErrInvalidCredentials
	}
	if !cred.active {
		return domain.LoginResponse{}, ErrInactiveAccount
	}

	expiresAt := a.now().Add(a.tokenTTL)
	token, err := a.sign(username, cred.role, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	return domain.LoginResponse{
		AccessToken: token,
		Role:        cred.role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &ledgerClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithIssuer(tokenIssuer))
	if err != nil || !token.Valid {
		return domain.Actor{}, ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, ErrInvalidToken
	}
	return domain.Actor{Username: sub, Role: claims.Role}, nil
}

func (a *AuthManager) sign(username, role string, expiresAt time.Time) (string, error) {
	claims := ledgerClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwtlib.NewNumericDate(a.now()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    tokenIssuer,
		},
		Role: role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// refresh reloads accounts from the user store so that users created by
// another process can log in.
func (a *AuthManager) refresh(ctx context.Context) error {
	users, err := a.userStore.ListUsers(ctx)
	if err != nil {
		return err
	}

	loaded := make(map[string]credential, len(users))
	for _, user := range users {
		username := strings.ToLower(strings.TrimSpace(user.Username))
		if username == "" || !isPasswordHash(user.Password) {
			continue
		}
		loaded[username] = credential{password: user.Password, role: user.Role, active: user.Active}
	}

	a.mu.Lock()
	a.users = loaded
	a.mu.Unlock()
	return nil
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
