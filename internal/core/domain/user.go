package domain

import "time"

// User is the account the session is authenticated as. It mirrors the
// profile returned by the remote service and is cached locally between runs.
type User struct {
	ID        int64     `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Email     string    `json:"email" yaml:"email"`
	CreatedAt time.Time `json:"created_at,omitzero" yaml:"created_at,omitempty"`

	// Extra carries profile fields this client does not model.
	Extra Extra `json:"-" yaml:"-"`
}

type userJSON User

var userKeys = []string{"id", "name", "email", "created_at"}

func (u *User) UnmarshalJSON(data []byte) error {
	var v userJSON
	extra, err := decodeExtra(data, &v, userKeys...)
	if err != nil {
		return err
	}
	v.Extra = extra
	*u = User(v)
	return nil
}

func (u User) MarshalJSON() ([]byte, error) {
	return encodeExtra(userJSON(u), u.Extra)
}
