package domain

import "time"

// AccessToken is the short-lived bearer credential returned by /auth/token.
type AccessToken struct {
	AccessToken      string    `json:"accessToken"`
	ExpiresInSeconds int64     `json:"expiresInSeconds"`
	Expiration       time.Time `json:"expiration"`
	IssuedAt         time.Time `json:"issuedAt"`
}

// ExpiresAt returns the absolute expiry, preferring Expiration when the
// server sent one.
func (t AccessToken) ExpiresAt() time.Time {
	if !t.Expiration.IsZero() {
		return t.Expiration
	}
	issued := t.IssuedAt
	if issued.IsZero() {
		issued = time.Now()
	}
	return issued.Add(time.Duration(t.ExpiresInSeconds) * time.Second)
}

// Remaining is the lifetime left at now. Never negative.
func (t AccessToken) Remaining(now time.Time) time.Duration {
	d := t.ExpiresAt().Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Valid reports whether the token is non-empty and unexpired at now.
func (t AccessToken) Valid(now time.Time) bool {
	return t.AccessToken != "" && t.Remaining(now) > 0
}

// LoginResponse is the body of a successful /auth/login.
type LoginResponse struct {
	Message string `json:"message,omitempty"`
}
