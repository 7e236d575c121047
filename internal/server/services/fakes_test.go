package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/busauth/internal/common"
	"github.com/dmitrijs2005/busauth/internal/cryptox"
	"github.com/dmitrijs2005/busauth/internal/logging"
	"github.com/dmitrijs2005/busauth/internal/server/lockout"
	"github.com/dmitrijs2005/busauth/internal/server/models"
	"github.com/dmitrijs2005/busauth/internal/server/repositories/properties"
	sessionrepo "github.com/dmitrijs2005/busauth/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/busauth/internal/server/sessions"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var testHasher = cryptox.NewHasher(cryptox.Params{
	Memory:     1024,
	Iterations: 1,
	Threads:    1,
	SaltLength: 16,
	KeyLength:  32,
})

// --- credential store ---

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*models.User

	findErr      error
	updatePwErr  error
	lastLoginErr error
	createErr    error
	panicOnFind  bool

	passwordSources []string
	lastLogins      int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[string]*models.User{}}
}

func (f *fakeUsers) add(u *models.User) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Status == "" {
		u.Status = models.StatusActive
	}
	f.users[u.Username] = u
	return u
}

func (f *fakeUsers) get(username string) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := *f.users[username]
	return &u
}

func (f *fakeUsers) FindByUsername(_ context.Context, username string) (*models.User, error) {
	if f.panicOnFind {
		panic("store exploded")
	}
	if f.findErr != nil {
		return nil, f.findErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, userID, hash, source string) error {
	if f.updatePwErr != nil {
		return f.updatePwErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == userID {
			u.PasswordHash = hash
			if source != models.SourceLoginMigration {
				u.FirstAccess = false
			}
			f.passwordSources = append(f.passwordSources, source)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeUsers) UpdateLastLogin(_ context.Context, userID, _ string) error {
	if f.lastLoginErr != nil {
		return f.lastLoginErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == userID {
			now := time.Now()
			u.LastLogin = &now
			f.lastLogins++
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeUsers) CreateUser(_ context.Context, u *models.User) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.Username]; ok {
		return "", common.ErrorAlreadyExists
	}
	cp := *u
	cp.ID = uuid.NewString()
	f.users[u.Username] = &cp
	return cp.ID, nil
}

// --- audit ---

type recordingAudit struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func (r *recordingAudit) Record(_ context.Context, e models.AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *recordingAudit) actions() []models.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.AuditAction, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

func (r *recordingAudit) last() models.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[len(r.entries)-1]
}

// --- sessions ---

// createOnlySessions has no revocation capability.
type createOnlySessions struct {
	inner *sessions.Manager
}

func (c createOnlySessions) CreateSession(ctx context.Context, u *models.User) (*models.IssuedSession, error) {
	return c.inner.CreateSession(ctx, u)
}

func (c createOnlySessions) ValidateSession(ctx context.Context, token string) (*models.SessionInfo, error) {
	return c.inner.ValidateSession(ctx, token)
}

type failingSessions struct{ err error }

func (f failingSessions) CreateSession(context.Context, *models.User) (*models.IssuedSession, error) {
	return nil, f.err
}

func (f failingSessions) ValidateSession(context.Context, string) (*models.SessionInfo, error) {
	return nil, f.err
}

// --- wiring ---

type testEnv struct {
	svc      *AuthService
	users    *fakeUsers
	audit    *recordingAudit
	tracker  *lockout.Tracker
	sessions *sessions.Manager
}

func newTestSessions() *sessions.Manager {
	return sessions.NewManager(sessionrepo.NewMemoryRepository(), []byte("test-secret"), time.Hour, logging.Nop{})
}

func newTestEnv(t *testing.T, sm SessionManager) *testEnv {
	t.Helper()

	env := &testEnv{
		users:   newFakeUsers(),
		audit:   &recordingAudit{},
		tracker: lockout.NewTracker(properties.NewMemoryStore(time.Hour), lockout.Config{}),
	}
	if m, ok := sm.(*sessions.Manager); ok {
		env.sessions = m
	}

	svc, err := NewAuthService(env.users, sm, env.tracker, logging.Nop{},
		WithHasher(testHasher),
		WithAudit(env.audit),
	)
	require.NoError(t, err)
	env.svc = svc
	return env
}

func newDefaultEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnv(t, newTestSessions())
}

func (e *testEnv) addUser(t *testing.T, username, password string, mutate ...func(*models.User)) *models.User {
	t.Helper()
	hash, err := testHasher.Hash(password)
	require.NoError(t, err)
	u := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		FullName:     "Test " + username,
		PasswordHash: hash,
		Status:       models.StatusActive,
		Role:         models.DefaultRole,
		Permissions:  models.DefaultPermissions,
	}
	for _, m := range mutate {
		m(u)
	}
	return e.users.add(u)
}

func (e *testEnv) attempts(t *testing.T, username string) int64 {
	t.Helper()
	n, err := e.tracker.Attempts(context.Background(), username)
	require.NoError(t, err)
	return n
}
