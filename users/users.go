package users

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"

	apperrors "github.com/jrsteele09/go-platform-console/internal/errors"
	"golang.org/x/crypto/bcrypt"
)

// RoleType is the console role of an authenticated user
type RoleType string

const (
	RoleAdmin  RoleType = "admin"  // Operates the platform catalogue and all users
	RoleClient RoleType = "client" // Links platforms and API-key accounts to their own profile
)

func (r RoleType) Valid() bool {
	return r == RoleAdmin || r == RoleClient
}

type User struct {
	ID        string   `json:"id"`                   // Unique identifier for the user
	Email     string   `json:"email"`                // User's email address
	FirstName string   `json:"first_name,omitempty"` // First name of the user
	LastName  string   `json:"last_name,omitempty"`  // Last name of the user
	Role      RoleType `json:"role"`                 // Console role
}

// Credentials is the login payload
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the self sign-up payload. New accounts are always clients.
type Registration struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// IsResolvable reports whether u identifies a user with a console role. A
// token whose user is not resolvable is treated as invalid.
func (u *User) IsResolvable() bool {
	return u != nil && strings.TrimSpace(u.ID) != "" && u.Role.Valid()
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// HasRole reports whether the user holds one of roles
func (u *User) HasRole(roles ...RoleType) bool {
	if u == nil {
		return false
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// Clone returns a copy that can be handed to readers
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// ValidationError is a rejected form field. It matches ErrValidation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason + ": " + apperrors.ErrValidation.Error()
}

func (e *ValidationError) Is(target error) bool {
	return target == apperrors.ErrValidation
}

func invalid(reason string) error {
	return &ValidationError{Reason: reason}
}

// ValidateCredentials checks the login form before it is sent
func ValidateCredentials(c Credentials) error {
	if strings.TrimSpace(c.Email) == "" {
		return invalid("email is required")
	}
	if c.Password == "" {
		return invalid("password is required")
	}
	return nil
}

// ValidateRegistration checks a sign-up payload. Failures wrap ErrValidation.
func ValidateRegistration(r Registration) error {
	if _, err := mail.ParseAddress(r.Email); err != nil || !strings.Contains(r.Email, "@") {
		return invalid("invalid email format")
	}
	if strings.TrimSpace(r.FirstName) == "" {
		return invalid("first name is required")
	}
	if strings.TrimSpace(r.LastName) == "" {
		return invalid("last name is required")
	}
	if err := ValidatePasswordStrength(r.Password); err != nil {
		return invalid(err.Error())
	}
	return nil
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
