// Package service defines interfaces for core, stateless domain logic.
// These services encapsulate business rules that don't naturally fit within a single entity.
package service

// PasswordPolicy defines the interface for local password strength checks.
// Validation is pure: no I/O, and the same input always yields the same
// result, so it can run before any network call.
type PasswordPolicy interface {
	// Validate returns nil when the password satisfies every rule, or a
	// validation error carrying the first violated rule's message.
	Validate(password string) error
}
