// Package client talks to the busauth gRPC service on behalf of the CLI.
//
// GRPCClient keeps the session token returned by a successful login in
// memory, attaches it to outgoing calls through a unary interceptor and maps
// gRPC status codes to the sentinel errors in errors.go, which callers match
// with errors.Is.
package client
