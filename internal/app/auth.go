package app

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookreader/internal/util"
	"bookreader/pkg/auth"
	"bookreader/pkg/domain"
	"bookreader/pkg/store"
)

// Register creates a user account. The registration token is a coarse shared
// secret gating who may create accounts at all; it is checked before any
// persistence side effect.
func (a *App) Register(regToken, username, password, role string) (domain.User, error) {
	if subtle.ConstantTimeCompare([]byte(regToken), []byte(a.registrationToken)) != 1 {
		return domain.User{}, ErrInvalidRegistrationToken
	}
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.User{}, ErrCredentialsRequired
	}
	parsedRole, ok := parseRole(role)
	if !ok {
		return domain.User{}, ErrInvalidRole
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:           util.NewID(),
		Username:     username,
		PasswordHash: passwordHash,
		Role:         parsedRole,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.store.CreateUser(user); err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			return domain.User{}, ErrUsernameTaken
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login verifies credentials and issues a bearer token whose claims snapshot
// the user record at this moment.
func (a *App) Login(username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", ErrCredentialsRequired
	}
	user, ok, err := a.store.GetUserByUsername(username)
	if err != nil {
		return "", fmt.Errorf("find user: %w", err)
	}
	if !ok {
		return "", ErrUserNotFound
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return "", ErrInvalidPassword
	}
	token, err := a.tokens.Issue(domain.Claims{UserID: user.ID, Role: user.Role})
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

// VerifyToken validates a bearer token and returns its claims.
func (a *App) VerifyToken(token string) (domain.Claims, error) {
	return a.tokens.Verify(token)
}

func parseRole(role string) (domain.UserRole, bool) {
	switch strings.ToUpper(strings.TrimSpace(role)) {
	case string(domain.RoleAdmin):
		return domain.RoleAdmin, true
	case string(domain.RoleUser), "":
		return domain.RoleUser, true
	default:
		return "", false
	}
}
