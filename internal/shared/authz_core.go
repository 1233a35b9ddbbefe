package shared

// Platform administration permissions. The repair-workflow permissions live
// in authz_tickets.go.
const (
	PermUsersView = "users.view"
	PermUsersEdit = "users.edit"

	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"

	PermPermissionsView = "permissions.view"
)

// CoreScopes lists the platform administration permissions.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersEdit,
		PermRolesView,
		PermRolesEdit,
		PermPermissionsView,
	}
}

// AllScopes is the full permission catalog the handlers enforce.
func AllScopes() []string {
	return append(CoreScopes(), TicketScopes()...)
}
