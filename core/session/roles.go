package session

// Roles, derived from a Session; never stored.
const (
	RoleSystemAdmin Role = "system_admin"
	RoleOrgAdmin    Role = "org_admin"
	RoleOrgMember   Role = "org_member"
	RoleIndividual  Role = "individual"
	RoleAnonymous   Role = "anonymous"
)

type Role string

// ResolveRole maps a Session to its single UI role classification.
// Evaluated in fixed precedence order, first match wins: a system admin who also
// belongs to an organization must resolve to RoleSystemAdmin, never RoleOrgAdmin.
func ResolveRole(s Session) Role {
	ident := s.Identity()
	switch {
	case ident != nil && (ident.Role == "admin" || ident.IsSystemAdmin):
		return RoleSystemAdmin
	case s.AccountType() == AccountOrganization && ident != nil && ident.IsOrgAdmin:
		return RoleOrgAdmin
	case s.AccountType() == AccountOrganization:
		return RoleOrgMember
	case s.IsAuthenticated():
		return RoleIndividual
	default:
		return RoleAnonymous
	}
}
