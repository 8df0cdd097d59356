package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/clinicops/clinic-console/internal"
)

// AuthClient is the transport surface the state machine drives. A returned
// user may be nil on Refresh when the server omits the payload.
type AuthClient interface {
	Login(ctx context.Context, email, password string) (*User, error)
	Register(ctx context.Context, params RegisterParams) (*User, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*User, error)
	Refresh(ctx context.Context) (*User, error)
}

// Manager is the session state machine. All state lives behind its mutex;
// every transition's read-modify-write section is atomic with respect to the
// others, so no caller can observe a half-applied transition. Persisted-store
// writes happen inside the same critical section as the in-memory mutation,
// which keeps the two views consistent for concurrent readers.
//
// Each network transition captures a generation number when it starts and
// discards its result if a newer transition started meanwhile. A refresh
// resolving after a logout therefore cannot resurrect the session.
type Manager struct {
	client AuthClient
	store  Store
	logger *slog.Logger

	mu             sync.Mutex
	user           *User
	authenticated  bool
	pending        int
	initialLoading bool
	restored       bool
	errMsg         string
	gen            uint64
}

func NewManager(client AuthClient, store Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		client:         client,
		store:          store,
		logger:         logger,
		initialLoading: true,
	}
}

// Snapshot returns the current state projection.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		User:            m.user.Clone(),
		IsAuthenticated: m.authenticated,
		Loading:         m.pending > 0,
		InitialLoading:  m.initialLoading,
		Err:             m.errMsg,
	}
}

// CurrentUser returns a copy of the authenticated user, or nil.
func (m *Manager) CurrentUser() *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user.Clone()
}

// begin marks a network transition as started: bumps the generation, counts
// it as in-flight, and clears the previous attempt's error.
func (m *Manager) begin() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.pending++
	m.errMsg = ""
	return m.gen
}

// staleLocked reports whether a newer transition started after gen.
func (m *Manager) staleLocked(gen uint64) bool {
	return gen != m.gen
}

// setAuthenticatedLocked installs user as the authenticated identity and
// mirrors it into the persisted store. Persistence failures are logged only:
// the in-memory session stays valid, the slot just lags.
func (m *Manager) setAuthenticatedLocked(ctx context.Context, user *User) {
	m.user = user
	m.authenticated = true
	m.errMsg = ""
	if err := m.store.SaveUser(ctx, user); err != nil {
		m.logger.Error("failed to persist user record", "error", err)
	}
}

// clearAuthLocked drops the identity and the persisted copy together.
func (m *Manager) clearAuthLocked(ctx context.Context) {
	m.user = nil
	m.authenticated = false
	if err := m.store.ClearUser(ctx); err != nil {
		m.logger.Error("failed to clear persisted user", "error", err)
	}
}

// Login authenticates with email and password. On failure the session is
// fully cleared, locally and in the persisted store.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	gen := m.begin()
	user, err := m.client.Login(ctx, email, password)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending--
	if m.staleLocked(gen) {
		m.logger.Debug("discarding stale login result")
		return err
	}

	if err != nil {
		m.errMsg = internal.ErrorMessage(err)
		m.clearAuthLocked(ctx)
		m.logger.Warn("login failed", "email", email, "error", err)
		return err
	}

	m.setAuthenticatedLocked(ctx, user)
	m.logger.Info("login succeeded", "user_id", user.ID)
	return nil
}

// Register creates an account and signs the new user in. Unlike Login, a
// failed register leaves any prior session untouched and only records the
// error message.
func (m *Manager) Register(ctx context.Context, params RegisterParams) error {
	if err := params.Validate(); err != nil {
		m.mu.Lock()
		m.errMsg = err.Error()
		m.mu.Unlock()
		return err
	}

	gen := m.begin()
	user, err := m.client.Register(ctx, params)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending--
	if m.staleLocked(gen) {
		m.logger.Debug("discarding stale register result")
		return err
	}

	if err != nil {
		m.errMsg = internal.ErrorMessage(err)
		m.logger.Warn("registration failed", "email", params.Email, "error", err)
		return err
	}

	m.setAuthenticatedLocked(ctx, user)
	m.logger.Info("registration succeeded", "user_id", user.ID)
	return nil
}

// Logout clears the session unconditionally. The local state and persisted
// slot are cleared before the network call, so a remote failure can never
// leave a signed-in ghost behind; the server error is logged and swallowed.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.gen++ // in-flight transitions must not resurrect the session
	m.errMsg = ""
	m.clearAuthLocked(ctx)
	m.mu.Unlock()

	if err := m.client.Logout(ctx); err != nil {
		m.logger.Warn("remote logout failed, local session already cleared", "error", err)
	}
}

// CheckAuth asks the server who the current session belongs to. A 401 here
// is the expected "no session yet" outcome: authentication is cleared but no
// error is recorded, because a fresh client with no session is a normal
// state, not a failure to surface.
func (m *Manager) CheckAuth(ctx context.Context) error {
	gen := m.begin()
	user, err := m.client.Me(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending--
	if m.staleLocked(gen) {
		m.logger.Debug("discarding stale auth check result")
		return err
	}

	if err != nil {
		m.clearAuthLocked(ctx)
		if internal.IsNotAuthenticated(err) {
			m.logger.Debug("auth check: no active session")
			return err
		}
		m.errMsg = internal.ErrorMessage(err)
		m.logger.Warn("auth check failed", "error", err)
		return err
	}

	m.setAuthenticatedLocked(ctx, user)
	return nil
}

// RefreshToken rotates the session credentials. A refresh response may omit
// the user payload; the current identity is kept in that case. Any failure
// clears the session, locally and persisted. Like CheckAuth, a 401 is the
// expected "no session" outcome and records no error message.
func (m *Manager) RefreshToken(ctx context.Context) error {
	gen := m.begin()
	user, err := m.client.Refresh(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending--
	if m.staleLocked(gen) {
		m.logger.Debug("discarding stale refresh result")
		return err
	}

	if err != nil {
		m.clearAuthLocked(ctx)
		if internal.IsNotAuthenticated(err) {
			m.logger.Debug("token refresh: no active session")
			return err
		}
		m.errMsg = internal.ErrorMessage(err)
		m.logger.Warn("token refresh failed", "error", err)
		return err
	}

	if user != nil {
		m.setAuthenticatedLocked(ctx, user)
	}
	return nil
}

// LoadFromStorage restores the last-known user from the persisted slot. It
// runs its restore logic exactly once per process; later calls only report
// whether a user is present. A corrupt slot has already been deleted by the
// store and is treated as "no session", not an error.
func (m *Manager) LoadFromStorage(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.restored {
		return
	}
	m.restored = true
	defer func() { m.initialLoading = false }()

	user, err := m.store.LoadUser(ctx)
	if err != nil {
		m.logger.Warn("could not restore persisted session", "error", err)
		return
	}
	if user == nil {
		return
	}

	m.gen++
	m.user = user
	m.authenticated = true
	m.logger.Info("session restored from storage", "user_id", user.ID)
}

// UpdateUser merges a partial update into the current user and re-persists
// the merged record. No-op when nobody is signed in.
func (m *Manager) UpdateUser(ctx context.Context, patch UserPatch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return
	}

	merged := m.user.Clone()
	patch.apply(merged)
	m.user = merged
	if err := m.store.SaveUser(ctx, merged); err != nil {
		m.logger.Error("failed to persist updated user", "error", err)
	}
}

// SetUser installs a full user record as the authenticated identity, e.g.
// after a profile reload outside the auth endpoints.
func (m *Manager) SetUser(ctx context.Context, user *User) {
	if user == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.setAuthenticatedLocked(ctx, user.Clone())
}

// ClearError drops the last failure message. Idempotent.
func (m *Manager) ClearError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errMsg = ""
}
