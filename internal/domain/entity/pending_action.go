// Package entity contains the core business objects of the project.
package entity

// PendingAction names why a federated redirect was initiated, so the callback
// knows whether to start a new session or finish linking an identity. It is
// stored locally beside the correlation token and never transmitted.
type PendingAction string

const (
	// PendingActionLogin completes as a fresh sign-in session.
	PendingActionLogin PendingAction = "login"
	// PendingActionLinkAccount completes by attaching the federated identity
	// to the already signed-in account.
	PendingActionLinkAccount PendingAction = "link_account"
)

// String returns the string representation of the PendingAction.
func (a PendingAction) String() string {
	return string(a)
}

// IsValid checks if the PendingAction is a valid value.
func (a PendingAction) IsValid() bool {
	switch a {
	case PendingActionLogin, PendingActionLinkAccount:
		return true
	default:
		return false
	}
}
