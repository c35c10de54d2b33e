// Package directory persists accounts, devices, schedules, forced overrides
// and screen-time aggregates in SQLite.
//
// SQLiteDirectory is the single implementation of every lookup the rest of
// the service needs:
//
//   - credential validation for the token cache (tokencache.Validator)
//   - schedule and override reads for the state engine (policy.Directory)
//   - recent account activity for the webhook scheduler
//   - devices and screen time for webhook payloads
//
// Device secrets are stored only as Argon2id hashes. Validation is therefore
// expensive on purpose; callers go through tokencache.Cache.
//
// Instants that are compared in SQL (override expiry, activity, last seen)
// are stored as INTEGER unix milliseconds.
package directory
