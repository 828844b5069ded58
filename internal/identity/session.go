package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/apperr"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/models"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/storage"
)

// sessionRecord is what lives under session:<id>. Deleting it revokes every
// copy of the token.
type sessionRecord struct {
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// Sessions issues HS256 tokens backed by a stored session record.
type Sessions struct {
	store  storage.Store
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

func NewSessions(store storage.Store, secret string, ttl time.Duration, logger *zap.Logger) *Sessions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sessions{
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

func unauthenticated(msg string) error {
	return apperr.New(apperr.KindUnauthenticated, msg)
}

func (s *Sessions) Issue(ctx context.Context, user models.User) (*models.Session, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	sid := uuid.NewString()

	claims := jwt.RegisteredClaims{
		ID:        sid,
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	err = storage.UpdateJSON(ctx, s.store, storage.SessionKey(sid), func(rec *sessionRecord) error {
		*rec = sessionRecord{User: user, ExpiresAt: expires.UTC()}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &models.Session{Token: token, User: user, ExpiresAt: expires.UTC()}, nil
}

func (s *Sessions) parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			// Signed by us; only the clock ran out.
			return claims, unauthenticated("session expired")
		}
		return nil, unauthenticated("invalid session token")
	}
	if claims.ID == "" {
		return nil, unauthenticated("invalid session token")
	}
	return claims, nil
}

// Resolve returns the user behind a token whose session is still live.
func (s *Sessions) Resolve(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.parse(token)
	if err != nil {
		if claims != nil {
			s.forget(ctx, claims.ID)
		}
		return nil, err
	}

	var rec sessionRecord
	found, err := storage.LoadJSON(ctx, s.store, storage.SessionKey(claims.ID), &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, unauthenticated("session has ended")
	}
	if !s.now().Before(rec.ExpiresAt) {
		s.forget(ctx, claims.ID)
		return nil, unauthenticated("session expired")
	}
	return &rec.User, nil
}

// forget drops an expired session record. Failure only delays cleanup.
func (s *Sessions) forget(ctx context.Context, sid string) {
	if sid == "" {
		return
	}
	if err := s.store.Delete(ctx, storage.SessionKey(sid)); err != nil {
		s.logger.Warn("⚠️ Failed to delete expired session", zap.String("session_id", sid), zap.Error(err))
		return
	}
	s.logger.Debug("🧹 Expired session deleted", zap.String("session_id", sid))
}

// Revoke ends the session behind token.
func (s *Sessions) Revoke(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		if claims != nil {
			s.forget(ctx, claims.ID)
		}
		return err
	}
	if err := s.store.Delete(ctx, storage.SessionKey(claims.ID)); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, err, "failed to end session")
	}
	s.logger.Info("👋 Session revoked", zap.String("user_id", claims.Subject))
	return nil
}
