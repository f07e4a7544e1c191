package service

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/capecontrol/backend/internal/domain"
)

const (
	maxUsernameLength = 150
	maxEmailLength    = 254
	minPasswordLength = 8
)

var (
	usernamePattern     = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)
	passwordCharPattern = regexp.MustCompile(`^[A-Za-z\d@$!%*#?&]+$`)
)

// RegisterParams holds the fields submitted when creating an account.
type RegisterParams struct {
	Email    string
	Username string
	Password string
}

// Validator checks account input before it reaches storage.
type Validator struct{}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateRegistration returns a *domain.ValidationError listing every failing field, or nil.
func (v *Validator) ValidateRegistration(params RegisterParams) error {
	verr := domain.NewValidationError()

	v.validateUsername(verr, params.Username)
	v.validateEmail(verr, params.Email)
	v.validatePassword(verr, params)

	if verr.HasErrors() {
		return verr
	}
	return nil
}

func (v *Validator) validateUsername(verr *domain.ValidationError, username string) {
	switch {
	case username == "":
		verr.Add("username", "This field may not be blank.")
	case utf8.RuneCountInString(username) > maxUsernameLength:
		verr.Add("username", fmt.Sprintf("Ensure this field has no more than %d characters.", maxUsernameLength))
	case !usernamePattern.MatchString(username):
		verr.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}
}

func (v *Validator) validateEmail(verr *domain.ValidationError, email string) {
	if email == "" {
		verr.Add("email", "This field may not be blank.")
		return
	}
	if len(email) > maxEmailLength {
		verr.Add("email", fmt.Sprintf("Ensure this field has no more than %d characters.", maxEmailLength))
		return
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		verr.Add("email", "Enter a valid email address.")
	}
}

func (v *Validator) validatePassword(verr *domain.ValidationError, params RegisterParams) {
	password := params.Password
	if password == "" {
		verr.Add("password", "This field may not be blank.")
		return
	}

	if len(password) < minPasswordLength {
		verr.Add("password", fmt.Sprintf("This password is too short. It must contain at least %d characters.", minPasswordLength))
	}

	if !passwordCharPattern.MatchString(password) || !containsLetter(password) || !containsDigit(password) {
		verr.Add("password", "Password must contain at least one letter and one digit and only letters, digits and @$!%*#?& characters.")
	}

	if tooSimilar(password, params.Username, params.Email) {
		verr.Add("password", "The password is too similar to the username or email.")
	}
}

func containsLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}

func containsDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

// tooSimilar rejects passwords that contain the username or the email's local part.
func tooSimilar(password, username, email string) bool {
	lowered := strings.ToLower(password)

	candidates := []string{strings.ToLower(username)}
	if local, _, ok := strings.Cut(email, "@"); ok {
		candidates = append(candidates, strings.ToLower(local))
	}

	for _, candidate := range candidates {
		if len(candidate) >= 3 && strings.Contains(lowered, candidate) {
			return true
		}
	}
	return false
}
