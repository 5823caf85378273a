// Package token encodes and decodes the signed, expiring claim sets used for
// access and refresh tokens.
//
// Claims have a fixed shape ([Claims]): subject, role slugs, token kind and the
// registered JWT fields. Decoding failures are exhaustively enumerated:
// [ErrExpired], [ErrMalformed], [ErrInvalidSignature] and [ErrInvalidClaims].
//
// # Architecture boundaries
//
// The codec verifies signatures, expiry, issuer and audience. It does NOT check
// the token kind against the caller's expectation; a refresh token presented
// where an access token is required is an authorization decision made by the
// engine.
//
// # What this package must NOT do
//
//   - Consult Redis or any revocation list.
//   - Import any other goSession package.
package token
