// Package auth is the identity edge of the policy engine.
//
// It verifies bearer tokens issued by the clinic's login service and turns
// them into a *policy.Identity. Establishing sessions and storing users or
// roles belong to the login service; this package only reads the subject
// and role claims of an already-issued token.
package auth
