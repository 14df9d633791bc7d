package domain

import (
	"errors"
	"regexp"
	"time"
)

// Verification is stubbed: the code is fixed and logged instead of sent, but
// rows are still written and consumed so the check has real expiry and
// attempt budgets.
const (
	VerificationCode        = "123456"
	VerificationExpiry      = 10 * time.Minute
	MaxVerificationAttempts = 3
)

// PhoneVerification is one issued code for one phone number.
type PhoneVerification struct {
	ID          string
	PhoneNumber string
	Code        string
	ExpiresAt   time.Time
	Attempts    int
	IsUsed      bool
	CreatedAt   time.Time
	DeletedAt   *time.Time
}

var phoneRegex = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// ValidPhoneNumber reports whether the number looks like a dialable phone
// number (optional leading +, 7-15 digits).
func ValidPhoneNumber(phone string) bool {
	return phoneRegex.MatchString(phone)
}

var (
	ErrInvalidPhone    = errors.New("invalid phone number")
	ErrInvalidCode     = errors.New("invalid verification code")
	ErrCodeExpired     = errors.New("verification code expired")
	ErrTooManyAttempts = errors.New("too many verification attempts")
)
