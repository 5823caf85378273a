// Package password implements password hashing, verification and the complexity
// policy for account credentials.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The parameters travel with the hash, so verification needs no configuration
// other than the encoded string. [Argon2.NeedsUpgrade] reports hashes produced
// with weaker parameters than the current configuration.
//
// # Policy
//
// [Argon2.Hash] refuses passwords that fail the configured [Policy]
// (length, upper, lower, digit, punctuation) with [ErrPolicyViolation].
// [Argon2.Verify] never fails: malformed input is a non-match.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other goSession package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
