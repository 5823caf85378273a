// Package rate provides the Redis-backed fixed-window counters used to throttle
// unauthenticated entry points (login and registration) per client IP.
//
// # Window semantics
//
// INCR + EXPIRE on the first hit of a window. The key is
// <prefix>rl:<scope>:<ip>, so login and registration share one budget when they
// use the same scope.
//
// # What this package must NOT do
//
//   - Decide account lockout; that is persisted on the user record.
//   - Be imported outside the goSession module.
package rate
