package domain

// SessionStatus is the outcome of a session check on protected-route entry.
type SessionStatus int

const (
	Unauthenticated SessionStatus = iota
	Authenticated
)

func (s SessionStatus) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}
