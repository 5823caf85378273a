// Package security summarizes the effective security posture of an engine
// configuration. sessiond logs the report once at startup.
//
// # What this package must NOT do
//
//   - Change configuration; it only reports on it.
//   - Be imported by the engine itself.
package security
