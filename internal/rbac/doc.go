// Package rbac implements role-based access control for the platform:
// the fixed permission catalog, the permission resolver, role and role
// assignment administration, and team-scoped permission checks.
//
// Resolution is a pure query and always on the request path: storage
// errors propagate to the caller, which must treat them as a denial.
package rbac
