package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/apperr"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/models"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/storage"
)

const utpPattern = `^[a-zA-Z0-9._-]+@utp\.edu\.pe$`

func newMock(t *testing.T) *MockIdentity {
	t.Helper()
	m, err := NewMockIdentity(storage.NewMemory(), utpPattern, nil)
	require.NoError(t, err)
	return m
}

func TestNewMockIdentity_BadPattern(t *testing.T) {
	_, err := NewMockIdentity(storage.NewMemory(), "([", nil)
	assert.Error(t, err)
}

func TestLogin(t *testing.T) {
	m := newMock(t)

	u, err := m.Login(context.Background(), models.LoginRequest{Email: " U20201234@utp.edu.pe "})
	require.NoError(t, err)
	assert.Equal(t, "u20201234", u.ID)
	assert.Equal(t, "u20201234@utp.edu.pe", u.Email)
	assert.Equal(t, DefaultRole, u.Role)
}

func TestLogin_Rejects(t *testing.T) {
	tests := []struct {
		name string
		req  models.LoginRequest
	}{
		{"foreign domain", models.LoginRequest{Email: "someone@gmail.com"}},
		{"not an email", models.LoginRequest{Email: "u2020"}},
		{"short password", models.LoginRequest{Email: "u1@utp.edu.pe", Password: "123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newMock(t).Login(context.Background(), tt.req)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestRegisterThenLogin(t *testing.T) {
	ctx := context.Background()
	m := newMock(t)

	reg, err := m.Register(ctx, models.RegisterRequest{Email: "u20195678@utp.edu.pe", Password: "secret1", Name: "Maria Garcia"})
	require.NoError(t, err)
	assert.Equal(t, "Maria Garcia", reg.Name)

	u, err := m.Login(ctx, models.LoginRequest{Email: "u20195678@utp.edu.pe", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Maria Garcia", u.Name)

	_, err = m.Register(ctx, models.RegisterRequest{Email: "U20195678@utp.edu.pe", Password: "secret1", Name: "Maria"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestRegister_Validation(t *testing.T) {
	ctx := context.Background()
	m := newMock(t)

	_, err := m.Register(ctx, models.RegisterRequest{Email: "u1@utp.edu.pe", Password: "12345", Name: "Juan"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = m.Register(ctx, models.RegisterRequest{Email: "u1@utp.edu.pe", Password: "123456", Name: " Jo "})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSessions_IssueResolveRevoke(t *testing.T) {
	ctx := context.Background()
	s := NewSessions(storage.NewMemory(), "test-secret", time.Hour, nil)
	user := models.User{ID: "u1", Email: "u1@utp.edu.pe", Name: "Uno"}

	sess, err := s.Issue(ctx, user)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)

	got, err := s.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	require.NoError(t, s.Revoke(ctx, sess.Token))
	_, err = s.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestSessions_Expired(t *testing.T) {
	ctx := context.Background()
	s := NewSessions(storage.NewMemory(), "test-secret", time.Minute, nil)
	start := time.Now()
	s.now = func() time.Time { return start }

	sess, err := s.Issue(ctx, models.User{ID: "u1"})
	require.NoError(t, err)

	s.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = s.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func sessionID(t *testing.T, token string) string {
	t.Helper()
	claims := &jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)
	return claims.ID
}

func sessionStored(t *testing.T, store storage.Store, sid string) bool {
	t.Helper()
	snap, err := store.Load(context.Background(), storage.SessionKey(sid))
	require.NoError(t, err)
	return snap.Exists()
}

func TestSessions_ExpiredRecordIsDeleted(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	s := NewSessions(store, "test-secret", time.Minute, nil)
	start := time.Now()
	s.now = func() time.Time { return start }

	sess, err := s.Issue(ctx, models.User{ID: "u1"})
	require.NoError(t, err)
	sid := sessionID(t, sess.Token)
	assert.True(t, sessionStored(t, store, sid))

	s.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = s.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	assert.False(t, sessionStored(t, store, sid))
}

func TestSessions_RecordPastExpiryIsDeleted(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	s := NewSessions(store, "test-secret", time.Hour, nil)

	sess, err := s.Issue(ctx, models.User{ID: "u1"})
	require.NoError(t, err)
	sid := sessionID(t, sess.Token)

	err = storage.UpdateJSON(ctx, store, storage.SessionKey(sid), func(rec *sessionRecord) error {
		rec.ExpiresAt = time.Now().Add(-time.Second)
		return nil
	})
	require.NoError(t, err)

	_, err = s.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	assert.False(t, sessionStored(t, store, sid))
}

func TestSessions_ForeignExpiredTokenKeepsRecord(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	issuer := NewSessions(store, "one-secret", time.Minute, nil)
	verifier := NewSessions(store, "other-secret", time.Minute, nil)
	start := time.Now()
	issuer.now = func() time.Time { return start }
	verifier.now = func() time.Time { return start.Add(2 * time.Minute) }

	sess, err := issuer.Issue(ctx, models.User{ID: "u1"})
	require.NoError(t, err)

	_, err = verifier.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	assert.True(t, sessionStored(t, store, sessionID(t, sess.Token)))
}

func TestSessions_ForeignSignature(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	issuer := NewSessions(store, "one-secret", time.Hour, nil)
	verifier := NewSessions(store, "other-secret", time.Hour, nil)

	sess, err := issuer.Issue(ctx, models.User{ID: "u1"})
	require.NoError(t, err)

	_, err = verifier.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = verifier.Resolve(ctx, "not-a-token")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestContextProvider(t *testing.T) {
	var p Provider = ContextProvider{}
	assert.Nil(t, p.CurrentUser(context.Background()))

	u := &models.User{ID: "u1"}
	assert.Equal(t, u, p.CurrentUser(WithUser(context.Background(), u)))
}
