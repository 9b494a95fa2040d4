// Package navigation holds the state and list building behind the storefront
// top bar. It has no UI dependency so the server and the WASM client share it
package navigation

// Role is the access level a session renders the bar for
type Role int

const (
	// Anonymous is a visitor with no session
	Anonymous Role = iota
	// Guest browses with a guest session and no account
	Guest
	// Regular is a signed in customer
	Regular
	// Admin manages the catalog
	Admin
)

func (r Role) String() string {
	switch r {
	case Guest:
		return "guest"
	case Regular:
		return "regular"
	case Admin:
		return "admin"
	default:
		return "anonymous"
	}
}

// User is the identity record of a session
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the read only session context the bar renders from
type Session struct {
	User    *User `json:"user"`
	IsAdmin bool  `json:"isAdmin"`
	IsGuest bool  `json:"isGuest"`
}

// Role derives exactly one role from the session flags. The admin flag wins
// over the guest flag, and a user record without either flag is Regular
func (s Session) Role() Role {
	switch {
	case s.IsAdmin:
		return Admin
	case s.IsGuest:
		return Guest
	case s.User != nil:
		return Regular
	default:
		return Anonymous
	}
}

// DisplayName is the label shown in the user section: the local part of the
// email for account holders, or the translated guest label
func (s Session) DisplayName(t Translator) string {
	if s.IsGuest || s.User == nil {
		return t.T("guest")
	}
	email := s.User.Email
	for i := 0; i < len(email); i++ {
		if email[i] == '@' {
			return email[:i]
		}
	}
	return email
}
