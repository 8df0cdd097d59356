package session

// Status is the logical session state. It is derived from the machine's
// fields rather than stored: the transition table allows combinations (a
// failed register keeps the prior authenticated user next to an error
// message) that a pure tagged variant cannot represent without losing
// information.
type Status int

const (
	StatusAnonymous Status = iota
	StatusAuthenticating
	StatusAuthenticated
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusAnonymous:
		return "anonymous"
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time projection of the session state in the shape
// screens consume. User is a private copy; mutating it does not touch the
// machine.
type Snapshot struct {
	User            *User
	IsAuthenticated bool
	Loading         bool
	InitialLoading  bool
	Err             string
}

// Status derives the logical state from the projected fields.
func (s Snapshot) Status() Status {
	switch {
	case s.Loading:
		return StatusAuthenticating
	case s.Err != "":
		return StatusFailed
	case s.IsAuthenticated:
		return StatusAuthenticated
	default:
		return StatusAnonymous
	}
}
