// Package common contains shared constants and sentinel errors used across
// busauth components.
package common

// AuthorizationHeaderName is the gRPC metadata key carrying the session token.
const AuthorizationHeaderName = "authorization"

// AuditTypeAuth is the fixed type tag of every audit entry written by the
// authentication core.
const AuditTypeAuth = "AUTH"
