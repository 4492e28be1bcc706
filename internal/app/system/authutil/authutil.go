// Package authutil holds password rules and hashing for locally
// authenticated accounts.
package authutil

import (
	"errors"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Auth methods stored on users.auth_method.
const (
	MethodPassword = "password"
	MethodGoogle   = "google"
)

const (
	MinPasswordLength = 8
	// bcrypt only considers the first 72 bytes and rejects longer input.
	MaxPasswordLength = 72
)

var (
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordTooLong  = errors.New("password too long")
	ErrPasswordCommon   = errors.New("password too common")
)

var commonPasswords = map[string]struct{}{
	"password":   {},
	"password1":  {},
	"12345678":   {},
	"123456789":  {},
	"1234567890": {},
	"qwertyuiop": {},
	"iloveyou":   {},
	"sunshine":   {},
	"football":   {},
	"baseball":   {},
	"welcome1":   {},
	"letmein1":   {},
	"trustno1":   {},
	"abc12345":   {},
	"passw0rd":   {},
}

// ValidatePassword enforces length bounds and rejects well-known passwords.
func ValidatePassword(pw string) error {
	if len(pw) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(pw) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	if _, bad := commonPasswords[strings.ToLower(pw)]; bad {
		return ErrPasswordCommon
	}
	return nil
}

// PasswordRules describes ValidatePassword for client-facing messages.
func PasswordRules() string {
	return "Password must be " + strconv.Itoa(MinPasswordLength) + " to " +
		strconv.Itoa(MaxPasswordLength) + " characters and not a commonly used password."
}

// PasswordMessage maps a ValidatePassword error to a user-facing message.
func PasswordMessage(err error) string {
	switch {
	case errors.Is(err, ErrPasswordTooShort):
		return "must be at least " + strconv.Itoa(MinPasswordLength) + " characters"
	case errors.Is(err, ErrPasswordTooLong):
		return "must be at most " + strconv.Itoa(MaxPasswordLength) + " characters"
	case errors.Is(err, ErrPasswordCommon):
		return "is too common"
	default:
		return "is invalid"
	}
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword reports whether pw matches the bcrypt hash.
func CheckPassword(pw, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// IsValidEmail is a light structural check: one @, non-empty local part,
// and a dotted domain that neither starts nor ends with a dot.
func IsValidEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || strings.Count(email, "@") != 1 {
		return false
	}
	domain := email[at+1:]
	if !strings.Contains(domain, ".") {
		return false
	}
	return !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}
