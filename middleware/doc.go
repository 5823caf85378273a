// Package middleware adapts goSession access-token validation to net/http.
//
// # Guards
//
//   - [Guard] resolves the caller from an "Authorization: Bearer" header or,
//     failing that, the access-token cookie, and stores the [goSession.Principal]
//     in the request context.
//   - [RequireRole] rejects principals without a role slug with 403.
//   - [ClientMeta] copies the client address and User-Agent into the context
//     for throttling and audit records.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to Engine.ValidateAccess).
//   - Access Redis or the credential store.
package middleware
