// Package postgres implements goSession.CredentialStore on PostgreSQL through
// a pgx connection pool, plus an audit sink writing to the audit_logs table.
//
// Schema changes ship as embedded golang-migrate files; run [Migrate] (or
// `sessiond migrate up`) before serving traffic.
//
// Update locks the user row with SELECT ... FOR UPDATE for the whole
// read-modify-write, so lockout counters and MFA changes from concurrent
// requests serialize in the database.
package postgres
