package rbac

// Permission constants define the available permissions in the system.
// These are used for role-based access control (RBAC) to restrict access
// to specific resources and actions. The catalog is fixed at build time.
const (
	// PermProjectsRead allows viewing projects and their contents.
	PermProjectsRead = "projects.read"
	// PermProjectsWrite allows creating, editing and archiving projects.
	PermProjectsWrite = "projects.write"

	// PermDocumentsRead allows viewing documents.
	PermDocumentsRead = "documents.read"
	// PermDocumentsWrite allows creating and editing documents.
	PermDocumentsWrite = "documents.write"

	// PermTeamsRead allows viewing teams and their member lists.
	PermTeamsRead = "teams.read"
	// PermTeamsWrite allows creating teams and editing team settings.
	PermTeamsWrite = "teams.write"
	// PermTeamsManageMembers allows adding, promoting and removing team members.
	PermTeamsManageMembers = "teams.manage_members"

	// PermUsersManage allows managing user accounts.
	PermUsersManage = "users.manage"
	// PermRolesManage allows managing roles and their permissions.
	PermRolesManage = "roles.manage"

	// PermAuditRead allows reading the audit log and user activity reports.
	PermAuditRead = "audit.read"
	// PermIncidentsManage allows viewing and resolving security incidents.
	PermIncidentsManage = "incidents.manage"

	// PermReportsView allows viewing aggregated platform reports.
	PermReportsView = "reports.view"
	// PermSettingsManage allows managing application-wide settings.
	PermSettingsManage = "settings.manage"

	// PermSensitiveAccess allows reading data classified as sensitive.
	// Reads under this permission are audited and rate-watched by the
	// anomaly detector.
	PermSensitiveAccess = "sensitive_data.access"
)

// catalog maps every permission identifier to its description.
var catalog = map[string]string{
	PermProjectsRead:       "View projects and their contents",
	PermProjectsWrite:      "Create, edit and archive projects",
	PermDocumentsRead:      "View documents",
	PermDocumentsWrite:     "Create and edit documents",
	PermTeamsRead:          "View teams and their member lists",
	PermTeamsWrite:         "Create teams and edit team settings",
	PermTeamsManageMembers: "Add, promote and remove team members",
	PermUsersManage:        "Manage user accounts",
	PermRolesManage:        "Manage roles and their permissions",
	PermAuditRead:          "Read the audit log and activity reports",
	PermIncidentsManage:    "View and resolve security incidents",
	PermReportsView:        "View aggregated platform reports",
	PermSettingsManage:     "Manage application-wide settings",
	PermSensitiveAccess:    "Read data classified as sensitive",
}

// Catalog returns a copy of the permission catalog (identifier to description).
func Catalog() map[string]string {
	out := make(map[string]string, len(catalog))
	for name, desc := range catalog {
		out[name] = desc
	}

	return out
}

// ValidPermission reports whether name is a known permission identifier.
func ValidPermission(name string) bool {
	_, ok := catalog[name]
	return ok
}
