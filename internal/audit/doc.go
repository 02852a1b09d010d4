// Package audit implements the append-only activity log: a fail-open
// recorder fed through a bounded queue, the audit query surface, and the
// retention cleanup.
//
// Recording never returns an error and never blocks the caller. Losing an
// audit record must not lose the business operation it describes, so
// persistence failures are logged locally and swallowed. The permission
// checks in package rbac are the opposite: synchronous and fail-closed.
package audit
