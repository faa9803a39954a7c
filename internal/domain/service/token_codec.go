package service

import (
	"lens/internal/domain/entity"
)

// TokenCodec decodes a self-contained identity token's payload without
// verifying its signature. Signature verification is the provider's and the
// backend's job; this side only reads claims.
type TokenCodec interface {
	// Decode extracts the claims from the token's payload segment. It fails
	// only on malformed input, never on an expired token: expiry is a
	// caller-level concern.
	Decode(token string) (*entity.Claims, error)
}
