package usecase

import (
	"context"

	"lens/internal/domain/entity"
)

// LinkStart reports how a link attempt began. An identity that is already
// linked needs no redirect, so AuthorizeURL is empty in that case.
type LinkStart struct {
	AlreadyLinked bool
	AuthorizeURL  string
}

// UnlinkState names where an unlink attempt settled.
type UnlinkState string

const (
	// UnlinkStateUnlinked means the federated identity was removed.
	UnlinkStateUnlinked UnlinkState = "unlinked"

	// UnlinkStateAlreadyUnlinked means nothing was linked to begin with;
	// local state was reconciled from fresh claims.
	UnlinkStateAlreadyUnlinked UnlinkState = "already_unlinked"

	// UnlinkStatePasswordSetupRequired means the backend refuses to remove
	// the only sign-in method until the account has a password.
	UnlinkStatePasswordSetupRequired UnlinkState = "password_setup_required"
)

// UnlinkOutcome is the result of one unlink flow step. Claims are refreshed
// from the provider after a state-changing answer so the caller sees the
// corrected identity list; they are nil when no refresh succeeded.
type UnlinkOutcome struct {
	State  UnlinkState
	Claims *entity.Claims
}

// LinkingUsecase drives linking and unlinking of federated identities for
// the signed-in account.
type LinkingUsecase interface {
	// BeginLink checks the link preconditions in order and returns the
	// authorize URL for the account-linking redirect. An already-linked
	// identity short-circuits as success without a redirect.
	BeginLink(ctx context.Context) (*LinkStart, error)

	// CompleteLink finishes the link after the callback handed back the
	// external identity's tokens. The external email must match the
	// signed-in account.
	CompleteLink(ctx context.Context, tokens entity.TokenSet) error

	// Unlink optimistically removes the named identity. A password-required
	// answer is not a failure: it comes back as an outcome state and the
	// caller resumes with SetPasswordAndUnlink.
	Unlink(ctx context.Context, providerName string) (*UnlinkOutcome, error)

	// SetPasswordAndUnlink resumes a password-required unlink: the password
	// is validated locally and set, then the unlink is retried exactly
	// once. The retry's failure is surfaced as-is, never retried again.
	SetPasswordAndUnlink(ctx context.Context, providerName, newPassword string) (*UnlinkOutcome, error)
}
