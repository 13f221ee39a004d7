package session

import (
	"context"
	"sync"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
)

type (
	// Snapshot is the full persisted state of one dashboard session.
	// Writes always replace the whole snapshot, never merge.
	Snapshot struct {
		Token         string                `json:"token"`
		AccountType   AccountType           `json:"account_type"`
		Identity      *Identity             `json:"identity,omitempty"`
		Organizations []OrganizationSummary `json:"organizations,omitempty"`
	}

	// Flash is a pending user notification persisted alongside the session.
	Flash struct {
		Level   string `json:"level"`
		Message string `json:"message"`
	}

	// Storage persists per-session namespaces in durable storage.
	Storage interface {
		// LoadSnapshot returns ErrNoSnapshot when nothing is persisted for sid.
		LoadSnapshot(ctx context.Context, sid string) (Snapshot, error)
		SaveSnapshot(ctx context.Context, sid string, snap Snapshot) error
		// ClearNamespace wipes everything persisted for sid, not just the auth keys.
		ClearNamespace(ctx context.Context, sid string) error
		PushFlash(ctx context.Context, sid string, f Flash) error
		PopFlashes(ctx context.Context, sid string) ([]Flash, error)
	}

	// Credentials is a login form submission.
	Credentials struct {
		Field    string `json:"field" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	// LoginResult is the mapped payload of a successful remote login.
	LoginResult struct {
		Token         string
		Identity      Identity
		Organizations []OrganizationSummary
	}

	// AuthClient performs remote authentication against the platform API.
	AuthClient interface {
		Login(ctx context.Context, at AccountType, creds Credentials) (LoginResult, error)
		Logout(ctx context.Context, at AccountType) error
	}

	// Store is the single source of truth for "who is logged in and as what"
	// within one dashboard session.
	Store struct {
		storage Storage
		auth    AuthClient
		logger  core.Logger

		mutex    sync.RWMutex
		sid      string
		hydrated bool
		current  Session
	}
)

// AuthError carries the server-supplied message of a rejected login.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

func NewStore(sid string, storage Storage, auth AuthClient, logger core.Logger) *Store {
	vala.BeginValidation().Validate(
		vala.StringNotEmpty(sid, "sid"),
		vala.IsNotNil(storage, "storage"),
		vala.IsNotNil(auth, "auth"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Store{
		storage: storage,
		auth:    auth,
		logger:  logger,
		sid:     sid,
		current: Anonymous(),
	}
}

func (st *Store) SessionID() string { return st.sid }

// Hydrated reports whether restoration from durable storage has completed.
func (st *Store) Hydrated() bool {
	st.mutex.RLock()
	defer st.mutex.RUnlock()
	return st.hydrated
}

// Current returns the session as of the last restore/login/logout.
func (st *Store) Current() Session {
	st.mutex.RLock()
	defer st.mutex.RUnlock()
	return st.current
}

// IsAdmin reports whether the current actor gets the admin bypass.
// NB: this conflates platform admins and org admins; callers needing the
// distinction must inspect AccountType directly.
func (st *Store) IsAdmin() bool {
	st.mutex.RLock()
	defer st.mutex.RUnlock()
	if st.current.accountType == AccountAdmin {
		return true
	}
	return st.current.identity != nil && st.current.identity.IsOrgAdmin
}

// Restore rehydrates the session from the persisted snapshot, best-effort:
// a cached identity is good enough to be authenticated for UI purposes and no
// network call is made. An absent snapshot is not an error; the session simply
// remains anonymous.
func (st *Store) Restore(ctx context.Context) {
	snap, err := st.storage.LoadSnapshot(ctx, st.sid)

	st.mutex.Lock()
	defer st.mutex.Unlock()
	st.hydrated = true

	if err != nil {
		if errors.Cause(err) != ErrNoSnapshot {
			st.logger.Warn("restoring session: "+err.Error(), err)
		}
		return
	}
	if snap.Token == "" || snap.Identity == nil || !snap.AccountType.Valid() {
		// partial snapshot; treat as absent rather than surfacing a broken session
		return
	}
	st.current = Session{
		accountType: snap.AccountType,
		identity:    snap.Identity,
		credential:  snap.Token,
		orgs:        snap.Organizations,
	}
}

// Login authenticates against the account-type-specific remote endpoint.
// On failure the prior session state is left untouched.
func (st *Store) Login(ctx context.Context, at AccountType, creds Credentials) (Session, error) {
	if !at.Valid() {
		return st.Current(), &AuthError{Message: "unknown account type"}
	}

	res, err := st.auth.Login(ctx, at, creds)
	if err != nil {
		return st.Current(), err
	}

	sess, err := Authenticated(at, res.Identity, res.Token, res.Organizations)
	if err != nil {
		return st.Current(), errors.Wrap(err, "building authenticated session")
	}

	snap := Snapshot{
		Token:         res.Token,
		AccountType:   at,
		Identity:      &res.Identity,
		Organizations: res.Organizations,
	}
	if err := st.storage.SaveSnapshot(ctx, st.sid, snap); err != nil {
		return st.Current(), errors.Wrap(err, "persisting session snapshot")
	}

	st.mutex.Lock()
	st.hydrated = true
	st.current = sess
	st.mutex.Unlock()
	return sess, nil
}

// Logout best-effort calls the remote logout endpoint (failure is logged, never
// blocks), then unconditionally clears session state and the whole persisted
// namespace to avoid stale cross-account leakage.
func (st *Store) Logout(ctx context.Context) {
	cur := st.Current()
	if cur.IsAuthenticated() {
		if err := st.auth.Logout(ctx, cur.AccountType()); err != nil {
			st.logger.Warn("remote logout failed: "+err.Error(), err)
		}
	}
	st.ForceClear(ctx)
}

// ForceClear is the teardown path shared by Logout and the gateway's 401
// handling: local clear plus a whole-namespace wipe, no remote call. Idempotent.
func (st *Store) ForceClear(ctx context.Context) {
	st.mutex.Lock()
	st.current = Anonymous()
	st.hydrated = true
	st.mutex.Unlock()

	if err := st.storage.ClearNamespace(ctx, st.sid); err != nil {
		st.logger.Warn("clearing session namespace: "+err.Error(), err)
	}
}
