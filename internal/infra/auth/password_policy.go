// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"fmt"
	"unicode"

	"lens/config"
	domainerrors "lens/internal/domain/errors"
	"lens/internal/domain/service"
)

const defaultMinLength = 8

// passwordPolicy is a concrete implementation of the PasswordPolicy
// interface. Rules run in a fixed order and the first violation wins, so the
// user always sees one actionable sentence.
type passwordPolicy struct {
	minLength        int
	requireLowercase bool
	requireUppercase bool
	requireNumbers   bool
}

// NewPasswordPolicy is the constructor for passwordPolicy. A nil config
// yields the default rules: at least 8 characters with a lowercase letter,
// an uppercase letter, and a digit.
func NewPasswordPolicy(cfg *config.PasswordPolicyConfig) service.PasswordPolicy {
	policy := &passwordPolicy{
		minLength:        defaultMinLength,
		requireLowercase: true,
		requireUppercase: true,
		requireNumbers:   true,
	}

	if cfg != nil {
		if cfg.MinLength > 0 {
			policy.minLength = cfg.MinLength
		}
		policy.requireLowercase = cfg.RequireLowercase
		policy.requireUppercase = cfg.RequireUppercase
		policy.requireNumbers = cfg.RequireNumbers
	}

	return policy
}

// Validate checks the password against every rule in order and returns a
// validation error carrying the first violated rule's message, or nil when
// all rules pass. Pure: no I/O, no state.
func (p *passwordPolicy) Validate(password string) error {
	if len([]rune(password)) < p.minLength {
		return domainerrors.NewValidationError(
			fmt.Sprintf("must be at least %d characters", p.minLength))
	}

	if p.requireLowercase && !containsClass(password, unicode.IsLower) {
		return domainerrors.NewValidationError("must contain a lowercase letter")
	}

	if p.requireUppercase && !containsClass(password, unicode.IsUpper) {
		return domainerrors.NewValidationError("must contain an uppercase letter")
	}

	if p.requireNumbers && !containsClass(password, unicode.IsDigit) {
		return domainerrors.NewValidationError("must contain a number")
	}

	return nil
}

func containsClass(s string, belongs func(rune) bool) bool {
	for _, r := range s {
		if belongs(r) {
			return true
		}
	}

	return false
}
