package auth

import (
	"bytes"
	"encoding/json"

	"lens/internal/domain/entity"
	domainerrors "lens/internal/domain/errors"
	"lens/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
)

// tokenCodec decodes identity-token payloads without verifying signatures.
// The provider signs the tokens and the backend verifies them; this side
// only needs to read the claims.
type tokenCodec struct {
	parser *jwt.Parser
}

// NewTokenCodec is the constructor for tokenCodec.
func NewTokenCodec() service.TokenCodec {
	return &tokenCodec{parser: jwt.NewParser()}
}

// idTokenClaims mirrors the identity-token payload. Registered claims cover
// subject and the timestamps; the rest are the pool's custom claims.
type idTokenClaims struct {
	Email         string          `json:"email"`
	EmailVerified flexibleBool    `json:"email_verified"`
	Identities    []identityClaim `json:"identities"`
	jwt.RegisteredClaims
}

// identityClaim is one entry of the pool's linked-identity claim.
type identityClaim struct {
	ProviderName string `json:"providerName"`
	UserID       string `json:"userId"`
}

// Decode extracts claims from the token payload. Expired tokens decode
// normally; expiry is the caller's concern.
func (c *tokenCodec) Decode(token string) (*entity.Claims, error) {
	claims := &idTokenClaims{}

	// ParseUnverified rejects anything that is not three dot-separated
	// segments with a base64url JSON payload. The signature is ignored.
	if _, _, err := c.parser.ParseUnverified(token, claims); err != nil {
		return nil, domainerrors.ErrMalformedToken.WrapMessage(err.Error())
	}

	decoded := &entity.Claims{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: bool(claims.EmailVerified),
	}

	if claims.ExpiresAt != nil {
		decoded.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		decoded.IssuedAt = claims.IssuedAt.Time
	}

	for _, identity := range claims.Identities {
		decoded.LinkedIdentities = append(decoded.LinkedIdentities, entity.LinkedIdentity{
			ProviderName:   identity.ProviderName,
			ProviderUserID: identity.UserID,
		})
	}

	return decoded, nil
}

// flexibleBool tolerates pools that emit boolean claims as the strings
// "true"/"false" on federated accounts.
type flexibleBool bool

func (b *flexibleBool) UnmarshalJSON(data []byte) error {
	trimmed := bytes.Trim(data, `"`)

	var value bool
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return err
	}
	*b = flexibleBool(value)

	return nil
}
