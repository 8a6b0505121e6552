// Package authapi exposes the HTTP surface of the identity and session
// subsystems: login, refresh rotation, logout, the authenticated profile
// endpoint, and ADMIN-only user management. It also provides the access-token
// middleware the rest of the API mounts behind.
package authapi
