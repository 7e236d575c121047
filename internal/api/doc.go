// Package api defines the busauth.v1.AuthService gRPC contract: message
// types, a JSON codec and the service descriptor shared by server and
// client.
//
// Messages travel as JSON under the "json" content-subtype, so both sides
// must use the codec registered by this package. Clients get that through
// NewAuthServiceClient.
package api
