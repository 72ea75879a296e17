// Package auth implements the account side of the report API: user
// registration, password login issuing signed JWTs, a go-router middleware that
// resolves the stored user for every protected request, profile reads and
// edits, and logout.
//
// Tokens:
//   - TokenServiceImpl signs HS256 tokens carrying the user id and tier. The
//     key id travels in the header and validation rejects tokens without it.
//   - The tier inside a token is informational. Protected routes always load
//     the user from the UserStore so tier changes apply immediately.
//
// Storage:
//   - UserStore is the persistence contract. NewUsersRepository backs it with
//     bun, and the repository subpackage backs it with MongoDB.
//
// Activity sinks:
//   - ActivitySink receives register, login, logout and profile events. Sinks
//     run best effort and their errors are only logged.
package auth
