// Package auth implements the session authentication middleware for the
// web service. Permission enforcement lives in package rbac; this package
// only establishes who the caller is.
package auth
