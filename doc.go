// Package goSession manages the session and credential lifecycle of a web
// application: password login with persisted lockout, TOTP second factor,
// short-lived access tokens, single-use rotating refresh tokens with reuse
// detection, revocation on logout, MFA enrollment and password change.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Engine], [Builder], [Config],
// the [CredentialStore] interface and value types. Hashing, TOTP and token
// encoding live in their own packages; Redis key layout lives in registry;
// throttling and audit dispatch live under internal/.
//
// # Concurrency
//
// Per-user read-modify-write goes through [CredentialStore.Update], which is
// the store's transaction. Refresh rotation is a Redis compare-and-swap. The
// Engine holds no in-process locks.
//
// # What this package must NOT do
//
//   - Report an infrastructure failure as an authentication failure.
//   - Reveal whether a username exists.
//   - Import any sub-package that re-imports goSession (no import cycles).
package goSession
