package session

import "strings"

// Well-known user types. UserType is an open set: the backend may introduce
// new values, so these constants only name the ones the console reasons about.
const (
	UserTypeStaff   = "staff"
	UserTypeManager = "manager"
)

// User is the identity record owned by the session state machine while
// authenticated. It is mirrored into the persisted store on every successful
// mutation; no credential or token material ever travels with it.
type User struct {
	ID          string   `json:"id"`
	UserType    string   `json:"user_type"`
	Email       string   `json:"email"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	Username    string   `json:"username"`
	IsActive    bool     `json:"is_active"`
	Permissions []string `json:"permissions,omitempty"`
	Roles       []string `json:"roles,omitempty"`
}

func (u *User) HasPermission(permission string) bool {
	if u == nil {
		return false
	}
	for _, p := range u.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

func (u *User) HasAnyPermission(permissions []string) bool {
	if u == nil {
		return false
	}
	for _, userPerm := range u.Permissions {
		for _, requiredPerm := range permissions {
			if userPerm == requiredPerm {
				return true
			}
		}
	}
	return false
}

func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (u *User) IsUserType(userType string) bool {
	return u != nil && u.UserType == userType
}

func (u *User) IsManager() bool {
	return u.IsUserType(UserTypeManager)
}

// FullName concatenates first and last name, trimmed. Returns "" when no
// user is present.
func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Clone returns a deep copy so callers can never mutate the machine's copy.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	if u.Permissions != nil {
		out.Permissions = append([]string(nil), u.Permissions...)
	}
	if u.Roles != nil {
		out.Roles = append([]string(nil), u.Roles...)
	}
	return &out
}

// UserPatch carries a partial update for the current user. Nil fields are
// left untouched; nil slices mean "no change", empty slices replace.
type UserPatch struct {
	UserType    *string
	Email       *string
	FirstName   *string
	LastName    *string
	Username    *string
	IsActive    *bool
	Permissions []string
	Roles       []string
}

func (p UserPatch) apply(u *User) {
	if p.UserType != nil {
		u.UserType = *p.UserType
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	if p.Permissions != nil {
		u.Permissions = append([]string(nil), p.Permissions...)
	}
	if p.Roles != nil {
		u.Roles = append([]string(nil), p.Roles...)
	}
}

// RegisterParams is the payload for account creation. Extra carries
// backend-specific fields (department, phone, ...) without the session layer
// having to know about them.
type RegisterParams struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Extra     map[string]string
}

func (p RegisterParams) Validate() error {
	if p.Email == "" {
		return ValidationError{Msg: "email is required"}
	}
	if p.Password == "" {
		return ValidationError{Msg: "password is required"}
	}
	return nil
}

// ValidationError represents a simple validation error from input checking.
type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }
