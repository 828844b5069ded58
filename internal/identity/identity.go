// Package identity authenticates students and keeps their sessions.
//
// MockIdentity only checks the shape of the credentials. A real credential
// store can replace it behind the Authenticator interface without touching
// the HTTP layer.
package identity

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/apperr"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/models"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/storage"
)

const (
	MinPasswordLength = 6
	MinNameLength     = 3

	DefaultInstitution = "UTP"
	DefaultRole        = "student"
)

type Authenticator interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.User, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
}

// MockIdentity accepts any well formed institutional email.
type MockIdentity struct {
	store  storage.Store
	email  *regexp.Regexp
	logger *zap.Logger
	now    func() time.Time
}

func NewMockIdentity(store storage.Store, emailPattern string, logger *zap.Logger) (*MockIdentity, error) {
	re, err := regexp.Compile(emailPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to compile email pattern: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MockIdentity{store: store, email: re, logger: logger, now: time.Now}, nil
}

func (m *MockIdentity) checkEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !m.email.MatchString(email) {
		return "", apperr.Validation("email %q is not an institutional address", email)
	}
	return email, nil
}

func (m *MockIdentity) users(ctx context.Context) (map[string]models.User, error) {
	users := map[string]models.User{}
	if _, err := storage.LoadJSON(ctx, m.store, storage.UsersKey(), &users); err != nil {
		return nil, err
	}
	return users, nil
}

func localPart(email string) string {
	return strings.SplitN(email, "@", 2)[0]
}

// Login returns the registered user for email, or a user derived from the
// address when nobody registered it.
func (m *MockIdentity) Login(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	email, err := m.checkEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if req.Password != "" && utf8.RuneCountInString(req.Password) < MinPasswordLength {
		return nil, apperr.Validation("password must be at least %d characters", MinPasswordLength)
	}

	users, err := m.users(ctx)
	if err != nil {
		return nil, err
	}
	if u, ok := users[email]; ok {
		m.logger.Info("🔑 User logged in", zap.String("user_id", u.ID))
		return &u, nil
	}

	u := models.User{
		ID:          localPart(email),
		Email:       email,
		Name:        localPart(email),
		Institution: DefaultInstitution,
		Role:        DefaultRole,
		CreatedAt:   m.now().UTC(),
	}
	m.logger.Info("🔑 User logged in", zap.String("user_id", u.ID), zap.Bool("registered", false))
	return &u, nil
}

func (m *MockIdentity) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	email, err := m.checkEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(req.Password) < MinPasswordLength {
		return nil, apperr.Validation("password must be at least %d characters", MinPasswordLength)
	}
	name := strings.TrimSpace(req.Name)
	if utf8.RuneCountInString(name) < MinNameLength {
		return nil, apperr.Validation("name must be at least %d characters", MinNameLength)
	}

	u := models.User{
		ID:          localPart(email),
		Email:       email,
		Name:        name,
		Institution: DefaultInstitution,
		Role:        DefaultRole,
		CreatedAt:   m.now().UTC(),
	}
	err = storage.UpdateJSON(ctx, m.store, storage.UsersKey(), func(users *map[string]models.User) error {
		if *users == nil {
			*users = map[string]models.User{}
		}
		if _, ok := (*users)[email]; ok {
			return apperr.Newf(apperr.KindConflict, "%s is already registered", email)
		}
		(*users)[email] = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("✅ User registered", zap.String("user_id", u.ID))
	return &u, nil
}
