// Package auth provides credential primitives for Family Rules Core.
//
// Two kinds of caller authenticate:
//   - Devices present a long-lived secret. Only an Argon2id hash of it is
//     stored (OWASP 2025 parameters), so verification is CPU- and
//     memory-heavy; the tokencache package sits in front of it.
//   - Administrators present a short-lived HS256 JWT carrying a role claim.
//     Admin tokens are validated by signature only, with no database hit.
package auth
