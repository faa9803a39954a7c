// Package entity contains the core business objects of the project.
package entity

import "time"

// Session is a read projection over the current token set: it is recomputed
// from the stored tokens and the clock, never mutated in place. An absent or
// expired session is a normal state, not an error.
type Session struct {
	IsValid bool    // Whether a non-expired identity token is held.
	Claims  *Claims // Decoded claims when valid, nil otherwise.
}

// InvalidSession is the projection returned when no usable session exists.
func InvalidSession() Session {
	return Session{IsValid: false, Claims: nil}
}

// ProjectSession derives a Session from decoded claims at the given instant.
func ProjectSession(claims *Claims, now time.Time) Session {
	if claims == nil || !claims.ExpiresAt.After(now) {
		return InvalidSession()
	}

	return Session{IsValid: true, Claims: claims}
}
