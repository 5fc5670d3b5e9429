package session

import (
	"github.com/jrsteele09/go-platform-console/users"
)

// State of the session lifecycle
type State int

const (
	StateUnknown       State = iota // Not yet determined, bootstrap has not finished
	StateAuthenticated              // Token and user are both present
	StateAnonymous                  // Determined, nobody is logged in
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is an immutable copy of the session handed to readers
type Snapshot struct {
	State State       `json:"state"`
	User  *users.User `json:"user,omitempty"`
	Token string      `json:"-"`

	// Generation increases on every transition into or out of
	// StateAuthenticated, so readers can tell two sessions of the same user
	// apart and ignore notifications that arrive late.
	Generation uint64 `json:"generation"`
}

// Ready reports whether the session has been determined
func (s Snapshot) Ready() bool {
	return s.State != StateUnknown
}

func (s Snapshot) IsAuthenticated() bool {
	return s.State == StateAuthenticated && s.User != nil && s.Token != ""
}

// Role of the current user, empty when anonymous
func (s Snapshot) Role() users.RoleType {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

func (s Snapshot) clone() Snapshot {
	s.User = s.User.Clone()
	return s
}
