// Package entity contains the core business objects of the project.
package entity

// ProviderType identifies an authentication provider.
type ProviderType string

const (
	// ProviderEmail is the pool's native email/password method.
	ProviderEmail ProviderType = "email"
	// ProviderGoogle is the federated Google login method.
	ProviderGoogle ProviderType = "google"
)

// String returns the string representation of the ProviderType.
func (p ProviderType) String() string {
	return string(p)
}
