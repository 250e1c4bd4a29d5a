package domain

// SessionState is the position of the session in its lifecycle.
//
//	Unknown → Checking → Authenticated | Anonymous
//	Authenticated --logout--> Anonymous
//	Anonymous --login/register--> Authenticated
type SessionState string

const (
	SessionUnknown       SessionState = "unknown"
	SessionChecking      SessionState = "checking"
	SessionAuthenticated SessionState = "authenticated"
	SessionAnonymous     SessionState = "anonymous"
)

// Session is a point-in-time snapshot of the client's belief about who is
// signed in. IsAuthenticated holds iff User and Token are both present.
type Session struct {
	State           SessionState
	User            *User
	Token           string
	IsAuthenticated bool
	// IsLoading is true only until the startup check has settled.
	IsLoading bool
}

// UserID returns the id of the session user, or 0 when anonymous.
func (s Session) UserID() int64 {
	if s.User == nil {
		return 0
	}
	return s.User.ID
}
