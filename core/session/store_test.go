package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type testLogger struct{}

func (testLogger) Enable(bool)                       {}
func (testLogger) Debug(string, ...interface{})      {}
func (testLogger) Info(string, ...interface{})       {}
func (testLogger) Warn(string, ...interface{})       {}
func (testLogger) Error(string, ...interface{})      {}
func (testLogger) Fatal(msg string, _ ...interface{}) { panic(msg) }

type fakeStorage struct {
	mutex     sync.Mutex
	snapshots map[string]Snapshot
	flashes   map[string][]Flash
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		snapshots: make(map[string]Snapshot),
		flashes:   make(map[string][]Flash),
	}
}

func (s *fakeStorage) LoadSnapshot(_ context.Context, sid string) (Snapshot, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	snap, ok := s.snapshots[sid]
	if !ok {
		return Snapshot{}, ErrNoSnapshot
	}
	return snap, nil
}

func (s *fakeStorage) SaveSnapshot(_ context.Context, sid string, snap Snapshot) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.snapshots[sid] = snap
	return nil
}

func (s *fakeStorage) ClearNamespace(_ context.Context, sid string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.snapshots, sid)
	delete(s.flashes, sid)
	return nil
}

func (s *fakeStorage) PushFlash(_ context.Context, sid string, f Flash) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.flashes[sid] = append(s.flashes[sid], f)
	return nil
}

func (s *fakeStorage) PopFlashes(_ context.Context, sid string) ([]Flash, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	flashes := s.flashes[sid]
	delete(s.flashes, sid)
	return flashes, nil
}

func (s *fakeStorage) isEmpty(sid string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	_, hasSnap := s.snapshots[sid]
	return !hasSnap && len(s.flashes[sid]) == 0
}

type fakeAuth struct {
	result      LoginResult
	loginErr    error
	logoutErr   error
	loginCalls  int
	logoutCalls int
}

func (a *fakeAuth) Login(_ context.Context, _ AccountType, _ Credentials) (LoginResult, error) {
	a.loginCalls++
	if a.loginErr != nil {
		return LoginResult{}, a.loginErr
	}
	return a.result, nil
}

func (a *fakeAuth) Logout(_ context.Context, _ AccountType) error {
	a.logoutCalls++
	return a.logoutErr
}

func orgAdminResult() LoginResult {
	return LoginResult{
		Token:         "tok123",
		Identity:      Identity{ID: 7, Name: "Boss", Email: "admin@co.com", IsOrgAdmin: true},
		Organizations: []OrganizationSummary{{ID: 1, Name: "Acme"}},
	}
}

func TestStore_Login(t *testing.T) {
	ctx := context.Background()
	storage := newFakeStorage()
	auth := &fakeAuth{result: orgAdminResult()}
	store := NewStore("sid1", storage, auth, &testLogger{})

	sess, err := store.Login(ctx, AccountOrganization, Credentials{Field: "admin@co.com", Password: "x"})
	if err != nil {
		t.Fatalf("Login() failed: %v", err)
	}

	if got := sess.AccountType(); got != AccountOrganization {
		t.Errorf("AccountType() = %v, want %v", got, AccountOrganization)
	}
	if got := ResolveRole(sess); got != RoleOrgAdmin {
		t.Errorf("ResolveRole() = %v, want %v", got, RoleOrgAdmin)
	}
	assert.Equal(t, sess.Organizations(), []OrganizationSummary{{ID: 1, Name: "Acme"}})

	// snapshot persisted with a full replace
	snap, err := storage.LoadSnapshot(ctx, "sid1")
	if err != nil {
		t.Fatalf("LoadSnapshot() failed: %v", err)
	}
	if snap.Token != "tok123" || snap.AccountType != AccountOrganization || snap.Identity == nil {
		t.Errorf("persisted snapshot incomplete: %+v", snap)
	}
}

func TestStore_Login_failureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	storage := newFakeStorage()
	auth := &fakeAuth{result: orgAdminResult()}
	store := NewStore("sid1", storage, auth, &testLogger{})

	if _, err := store.Login(ctx, AccountOrganization, Credentials{Field: "admin@co.com", Password: "x"}); err != nil {
		t.Fatalf("Login() failed: %v", err)
	}

	auth.loginErr = &AuthError{Message: "invalid credentials"}
	sess, err := store.Login(ctx, AccountOrganization, Credentials{Field: "admin@co.com", Password: "nope"})
	if err == nil {
		t.Fatal("Login() expected error, got nil")
	}
	if _, ok := err.(*AuthError); !ok {
		t.Errorf("Login() error = %T, want *AuthError", err)
	}

	// prior session survives a rejected login
	if !sess.IsAuthenticated() || ResolveRole(sess) != RoleOrgAdmin {
		t.Errorf("prior session lost after failed login: %+v", sess)
	}
	if !store.Current().IsAuthenticated() {
		t.Error("store state lost after failed login")
	}
}

func TestStore_Restore(t *testing.T) {
	ctx := context.Background()
	storage := newFakeStorage()
	auth := &fakeAuth{}

	// nothing persisted: stays anonymous, no error
	store := NewStore("sid1", storage, auth, &testLogger{})
	if store.Hydrated() {
		t.Error("Hydrated() = true before Restore()")
	}
	store.Restore(ctx)
	if !store.Hydrated() {
		t.Error("Hydrated() = false after Restore()")
	}
	if store.Current().IsAuthenticated() {
		t.Error("restored session should be anonymous")
	}

	// a persisted snapshot hydrates without a network call
	ident := Identity{ID: 3, Email: "solo@test.test"}
	snap := Snapshot{Token: "tok", AccountType: AccountIndividual, Identity: &ident}
	if err := storage.SaveSnapshot(ctx, "sid2", snap); err != nil {
		t.Fatalf("SaveSnapshot() failed: %v", err)
	}

	store = NewStore("sid2", storage, auth, &testLogger{})
	store.Restore(ctx)
	sess := store.Current()
	if !sess.IsAuthenticated() || sess.Credential() != "tok" {
		t.Errorf("restore did not hydrate session: %+v", sess)
	}
	if got := ResolveRole(sess); got != RoleIndividual {
		t.Errorf("ResolveRole() = %v, want %v", got, RoleIndividual)
	}
	if auth.loginCalls != 0 {
		t.Errorf("Restore() made %d network calls", auth.loginCalls)
	}
}

func TestStore_Logout_clearsEverything(t *testing.T) {
	ctx := context.Background()
	storage := newFakeStorage()
	auth := &fakeAuth{result: orgAdminResult()}
	store := NewStore("sid1", storage, auth, &testLogger{})

	if _, err := store.Login(ctx, AccountOrganization, Credentials{Field: "admin@co.com", Password: "x"}); err != nil {
		t.Fatalf("Login() failed: %v", err)
	}
	if err := storage.PushFlash(ctx, "sid1", Flash{Level: "info", Message: "hi"}); err != nil {
		t.Fatalf("PushFlash() failed: %v", err)
	}

	store.Logout(ctx)

	sess := store.Current()
	if sess.IsAuthenticated() || sess.AccountType() != AccountNone || sess.Identity() != nil || sess.Credential() != "" {
		t.Errorf("session not cleared: %+v", sess)
	}
	// the whole namespace is wiped, not just the auth keys
	if !storage.isEmpty("sid1") {
		t.Error("persisted namespace not wiped")
	}
	if auth.logoutCalls != 1 {
		t.Errorf("logoutCalls = %d, want 1", auth.logoutCalls)
	}
}

func TestStore_Logout_remoteFailureStillClears(t *testing.T) {
	ctx := context.Background()
	storage := newFakeStorage()
	auth := &fakeAuth{result: orgAdminResult(), logoutErr: assert.AnError}
	store := NewStore("sid1", storage, auth, &testLogger{})

	if _, err := store.Login(ctx, AccountOrganization, Credentials{Field: "admin@co.com", Password: "x"}); err != nil {
		t.Fatalf("Login() failed: %v", err)
	}

	store.Logout(ctx)
	if store.Current().IsAuthenticated() || !storage.isEmpty("sid1") {
		t.Error("local state must clear even when the remote logout fails")
	}
}

// two concurrent 401 teardowns must not race or resurrect state
func TestStore_ForceClear_idempotent(t *testing.T) {
	ctx := context.Background()
	storage := newFakeStorage()
	auth := &fakeAuth{result: orgAdminResult()}
	store := NewStore("sid1", storage, auth, &testLogger{})

	if _, err := store.Login(ctx, AccountOrganization, Credentials{Field: "admin@co.com", Password: "x"}); err != nil {
		t.Fatalf("Login() failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.ForceClear(ctx)
		}()
	}
	wg.Wait()

	if store.Current().IsAuthenticated() || !storage.isEmpty("sid1") {
		t.Error("session not cleared after concurrent teardowns")
	}
	if auth.logoutCalls != 0 {
		t.Errorf("ForceClear() must not call the remote logout; calls = %d", auth.logoutCalls)
	}
}

func TestStore_IsAdmin(t *testing.T) {
	tests := []struct {
		name string
		at   AccountType
		id   Identity
		want bool
	}{
		{name: "platform admin", at: AccountAdmin, id: Identity{ID: 1, Role: "admin"}, want: true},
		{name: "org admin", at: AccountOrganization, id: Identity{ID: 2, IsOrgAdmin: true}, want: true},
		{name: "org member", at: AccountOrganization, id: Identity{ID: 3}, want: false},
		{name: "individual", at: AccountIndividual, id: Identity{ID: 4}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			storage := newFakeStorage()
			auth := &fakeAuth{result: LoginResult{Token: "tok", Identity: tt.id}}
			store := NewStore("sid1", storage, auth, &testLogger{})

			if _, err := store.Login(ctx, tt.at, Credentials{Field: "x@test.test", Password: "x"}); err != nil {
				t.Fatalf("Login() failed: %v", err)
			}
			if got := store.IsAdmin(); got != tt.want {
				t.Errorf("IsAdmin() = %v, want %v", got, tt.want)
			}
		})
	}
}
