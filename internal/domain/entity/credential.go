// Package entity contains the core business objects of the project.
package entity

// Credential carries a username/password pair for exactly one sign-up or
// sign-in call. It is passed by value and never persisted.
type Credential struct {
	Username string // Login identifier, an email address for this pool.
	Password string // Plaintext password, verified provider-side only.
}

// IsComplete reports whether both fields are non-empty. Incomplete
// credentials must be rejected before any network call.
func (c Credential) IsComplete() bool {
	return c.Username != "" && c.Password != ""
}
