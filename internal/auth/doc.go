// Package auth provides account credentials and token validation for MCULink.
//
// The relay core consumes this package through a single seam: the Provider
// interface, which turns a bearer token into an account Identity or rejects
// it. Everything else here (registration, password hashing, the SQLite
// user repository) exists to issue those tokens in the first place and is
// never touched by a live session.
//
// # Components
//
//   - Provider: validates a bearer token, returns the account identity
//   - User / SQLiteUserRepository: durable account storage
//   - HashPassword / VerifyPassword: Argon2id password hashing (PHC format)
//   - GenerateAccessToken / ParseToken: HS256 JWT mint and validation
//
// # Security
//
//   - Passwords are hashed with Argon2id (OWASP parameters)
//   - Tokens are validated by signature and expiry only; revocation is out
//     of scope for relay sessions, which are bounded by the socket lifetime
package auth
