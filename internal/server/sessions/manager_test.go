package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/busauth/internal/logging"
	"github.com/dmitrijs2005/busauth/internal/server/auth"
	"github.com/dmitrijs2005/busauth/internal/server/models"
	sessionrepo "github.com/dmitrijs2005/busauth/internal/server/repositories/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newManager(t *testing.T) (*Manager, *clock) {
	t.Helper()
	c := &clock{t: time.Now()}
	m := NewManager(sessionrepo.NewMemoryRepository(), secret, time.Hour, logging.Nop{}).WithClock(c.now)
	return m, c
}

var joao = &models.User{ID: "u-1", Username: "joao", Role: "Motorista"}

func TestCreateAndValidate(t *testing.T) {
	m, c := newManager(t)
	ctx := context.Background()

	issued, err := m.CreateSession(ctx, joao)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Token)
	assert.NotEmpty(t, issued.TokenID)
	assert.Equal(t, c.t.Add(time.Hour), issued.ExpiresAt)

	info, err := m.ValidateSession(ctx, issued.Token)
	require.NoError(t, err)
	assert.True(t, info.Valid)
	assert.Equal(t, "joao", info.Username)
	assert.Equal(t, issued.TokenID, info.SessionID)
}

func TestValidate_Expired(t *testing.T) {
	m, c := newManager(t)
	ctx := context.Background()

	issued, err := m.CreateSession(ctx, joao)
	require.NoError(t, err)

	c.t = c.t.Add(2 * time.Hour)
	info, err := m.ValidateSession(ctx, issued.Token)
	require.NoError(t, err)
	assert.False(t, info.Valid)
	assert.Equal(t, models.SessionExpired, info.Reason)
}

func TestValidate_Malformed(t *testing.T) {
	m, _ := newManager(t)

	info, err := m.ValidateSession(context.Background(), "garbage")
	require.NoError(t, err)
	assert.False(t, info.Valid)
	assert.Equal(t, models.SessionMalformed, info.Reason)
}

func TestValidate_UnknownSession(t *testing.T) {
	m, c := newManager(t)

	tok, err := auth.GenerateToken("never-stored", "joao", "", secret, c.t, c.t.Add(time.Hour))
	require.NoError(t, err)

	info, err := m.ValidateSession(context.Background(), tok)
	require.NoError(t, err)
	assert.False(t, info.Valid)
	assert.Equal(t, models.SessionUnknown, info.Reason)
}

func TestRevokeSession(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	issued, err := m.CreateSession(ctx, joao)
	require.NoError(t, err)

	require.NoError(t, m.RevokeSession(ctx, issued.TokenID, "logout"))
	require.NoError(t, m.RevokeSession(ctx, issued.TokenID, "logout"), "second revoke is a no-op")

	info, err := m.ValidateSession(ctx, issued.Token)
	require.NoError(t, err)
	assert.False(t, info.Valid)
	assert.Equal(t, models.SessionRevoked, info.Reason)
}

func TestRevokeAllSessions(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	a, err := m.CreateSession(ctx, joao)
	require.NoError(t, err)
	b, err := m.CreateSession(ctx, joao)
	require.NoError(t, err)
	other, err := m.CreateSession(ctx, &models.User{ID: "u-2", Username: "maria"})
	require.NoError(t, err)

	n, err := m.RevokeAllSessions(ctx, "joao", "password changed")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	for _, tok := range []string{a.Token, b.Token} {
		info, err := m.ValidateSession(ctx, tok)
		require.NoError(t, err)
		assert.False(t, info.Valid)
	}

	info, err := m.ValidateSession(ctx, other.Token)
	require.NoError(t, err)
	assert.True(t, info.Valid)
}

type brokenRepo struct {
	sessionrepo.Repository
	err error
}

func (b brokenRepo) Create(context.Context, *models.Session) error { return b.err }
func (b brokenRepo) Find(context.Context, string) (*models.Session, error) {
	return nil, b.err
}
func (b brokenRepo) Revoke(context.Context, string, string, time.Time) error { return b.err }
func (b brokenRepo) RevokeAllForUser(context.Context, string, string, time.Time) (int64, error) {
	return 0, b.err
}

func TestManager_StorageErrors(t *testing.T) {
	boom := errors.New("db down")
	m := NewManager(brokenRepo{err: boom}, secret, 0, nil)
	ctx := context.Background()

	_, err := m.CreateSession(ctx, joao)
	assert.ErrorIs(t, err, boom)

	now := time.Now()
	tok, err := auth.GenerateToken("s-1", "joao", "", secret, now, now.Add(time.Hour))
	require.NoError(t, err)
	_, err = m.ValidateSession(ctx, tok)
	assert.ErrorIs(t, err, boom)

	assert.ErrorIs(t, m.RevokeSession(ctx, "s-1", "logout"), boom)
	_, err = m.RevokeAllSessions(ctx, "joao", "x")
	assert.ErrorIs(t, err, boom)
}
