// Package account manages players: signup with e-mail verification, login
// and high scores.
//
// A Directory stores users (PostgresDirectory for production,
// MemoryDirectory for tests and single-process runs). Passwords are hashed
// with bcrypt. Signup mails a six digit code through a Mailer (SendGrid, or
// the log when no key is configured); the code lives in a CodeStore (memory
// or Redis) until it is entered, expires, or has been guessed wrong too many
// times. Only verified users can log in. A TokenIssuer signs the HS256 JWT
// handed out at login; its sid claim is the key the user's games are stored
// under.
//
// High scores are only ever raised: Directory.RecordScore compares and
// updates in one step.
package account
