// Package registry records which refresh token is currently valid for each user
// and which tokens have been revoked before their natural expiry.
//
// # Key layout
//
//   - <prefix>refresh:<user_id>: the user's single live refresh token
//   - <prefix>blacklist:<token>: "1", expiring with the token
//
// Every entry carries a TTL, so nothing outlives the token it describes.
//
// # Atomicity
//
// Rotation is a Lua compare-and-swap: the stored value is replaced only when it
// equals the presented token, and deleted otherwise. Multi-key writes (logout,
// reuse invalidation) go through MULTI/EXEC.
//
// # What this package must NOT do
//
//   - Decode or verify tokens; callers pass raw strings and TTLs.
//   - Swallow Redis failures. Every one is wrapped with [ErrRedisUnavailable].
package registry
