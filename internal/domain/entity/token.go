// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"strings"
	"time"
)

// TokenSet holds the tokens issued for one signed-in session.
// It is owned exclusively by the session store once obtained: overwritten
// wholesale on sign-in or refresh, cleared wholesale on sign-out.
type TokenSet struct {
	IDToken      string // Self-contained identity token whose payload carries the Claims.
	AccessToken  string // Token presented to the identity provider's own APIs.
	RefreshToken string // Optional long-lived token the provider uses to mint new sessions.
}

// IsZero reports whether no tokens are held.
func (t TokenSet) IsZero() bool {
	return t.IDToken == "" && t.AccessToken == "" && t.RefreshToken == ""
}

// LinkedIdentity records one federated login method attached to the account.
type LinkedIdentity struct {
	ProviderName   string // Federated provider name, e.g. "google".
	ProviderUserID string // The user's unique ID at that provider (the provider's 'sub').
}

// Claims is the decoded payload of an identity token. The linked-identity
// list is the authoritative answer to "is this provider linked"; any cached
// flag must be recomputed from a fresh claims fetch after link or unlink.
type Claims struct {
	Subject          string           // The provider's unique ID for the account.
	Email            string           // Primary email, used as the match key when linking.
	EmailVerified    bool             // Whether the provider has verified the email.
	LinkedIdentities []LinkedIdentity // Federated identities attached to the account.
	ExpiresAt        time.Time        // Identity token expiry.
	IssuedAt         time.Time        // Identity token issue time.
}

// HasLinked reports whether the given federated provider appears in the
// linked-identity list. Provider names compare case-insensitively because
// hosted pools are not consistent about casing.
func (c *Claims) HasLinked(providerName string) bool {
	for _, identity := range c.LinkedIdentities {
		if strings.EqualFold(identity.ProviderName, providerName) {
			return true
		}
	}

	return false
}
