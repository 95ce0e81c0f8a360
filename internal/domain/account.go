package domain

import "regexp"

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)

const (
	FieldUsername             Field = "username"
	FieldPassword             Field = "password"
	FieldPasswordConfirmation Field = "passwordConfirmation"
)

// Credentials are exchanged for an access token.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the sign-up form.
type Registration struct {
	Username             string `json:"username"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"-"`
	Biography            string `json:"biography,omitempty"`
}

// Validate checks the form before it is sent.
func (r Registration) Validate() error {
	verr := &ValidationError{Invalid: map[Field]string{}}
	switch {
	case r.Username == "":
		verr.Missing = append(verr.Missing, FieldUsername)
	case !usernameRe.MatchString(r.Username):
		verr.Invalid[FieldUsername] = "3 to 32 letters, digits, '_' or '-'"
	}
	if r.Password == "" {
		verr.Missing = append(verr.Missing, FieldPassword)
	}
	if r.Password != r.PasswordConfirmation {
		verr.Invalid[FieldPasswordConfirmation] = "does not match the password"
	}
	if len(verr.Missing) == 0 && len(verr.Invalid) == 0 {
		return nil
	}
	if len(verr.Invalid) == 0 {
		verr.Invalid = nil
	}
	return verr
}

// UserProfile is the public profile returned by the platform.
type UserProfile struct {
	User         UserRef
	Biography    string
	Karma        int
	Achievements []Achievement
}
