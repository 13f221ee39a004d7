package session

import "errors"

var (
	// errors
	ErrNoSnapshot   = errors.New("no persisted session snapshot")
	ErrNotAnonymous = errors.New("authenticated session requires an identity and a credential")
)

// Account types
const (
	AccountNone         AccountType = ""
	AccountIndividual   AccountType = "individual"
	AccountOrganization AccountType = "organization"
	AccountAdmin        AccountType = "admin"
)

type (
	AccountType string

	// OrganizationSummary is the minimal organization info carried in a session.
	OrganizationSummary struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	// Identity is the authenticated actor as returned by the platform API.
	Identity struct {
		ID            int            `json:"id"`
		Name          string         `json:"name"`
		Email         string         `json:"email"`
		Role          string         `json:"role,omitempty"`
		IsSystemAdmin bool           `json:"is_system_admin"`
		IsOrgAdmin    bool           `json:"is_admin"`
		RolesByOrg    map[int]string `json:"roles_by_org,omitempty"`
	}

	// Session is the current authenticated actor.
	// The zero value is anonymous; an authenticated Session is only constructible
	// through Authenticated, so an account type can never exist without an
	// identity and a credential.
	Session struct {
		accountType AccountType
		identity    *Identity
		credential  string
		orgs        []OrganizationSummary
	}
)

func (at AccountType) Valid() bool {
	switch at {
	case AccountIndividual, AccountOrganization, AccountAdmin:
		return true
	}
	return false
}

// Anonymous returns the empty, unauthenticated Session.
func Anonymous() Session { return Session{} }

// Authenticated builds a Session for an authenticated actor.
func Authenticated(at AccountType, ident Identity, credential string, orgs []OrganizationSummary) (Session, error) {
	if !at.Valid() || credential == "" {
		return Session{}, ErrNotAnonymous
	}
	return Session{
		accountType: at,
		identity:    &ident,
		credential:  credential,
		orgs:        orgs,
	}, nil
}

func (s Session) IsAuthenticated() bool { return s.accountType != AccountNone }

func (s Session) AccountType() AccountType { return s.accountType }

// Identity returns a copy of the authenticated identity, or nil when anonymous.
func (s Session) Identity() *Identity {
	if s.identity == nil {
		return nil
	}
	ident := *s.identity
	return &ident
}

func (s Session) Credential() string { return s.credential }

func (s Session) Organizations() []OrganizationSummary {
	if s.orgs == nil {
		return nil
	}
	orgs := make([]OrganizationSummary, len(s.orgs))
	copy(orgs, s.orgs)
	return orgs
}
