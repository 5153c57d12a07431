package subscriber

import (
	"fmt"
	"time"
	"unicode"
)

// Subscriber is a prepaid client record.
//
// Money invariant: CreditMinor never goes negative; every change goes through
// AddCredit/DebitCredit which enforce the bound at the store boundary.
type Subscriber struct {
	Phone string `json:"phone" db:"phone"`

	// PIN is the 4-digit login secret. Stored as-is: this simulates a SIM PIN,
	// not an account password.
	PIN string `json:"-" db:"pin"`

	// CreditMinor is the prepaid balance in minor units.
	CreditMinor int64 `json:"credit_minor" db:"credit_minor"`

	Contacts []Contact `json:"contacts"`

	// Blocked numbers are carried on the record; blocklist management is a
	// separate surface and not exposed here.
	Blocked []string `json:"blocked,omitempty"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Contact struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

// ContactName returns the saved contact name for a number, or "" if none.
func (s Subscriber) ContactName(number string) string {
	for _, c := range s.Contacts {
		if c.Number == number {
			return c.Name
		}
	}
	return ""
}

const (
	// PhoneLength is the fixed subscriber number length.
	PhoneLength = 9
	// PINLength is the fixed PIN length.
	PINLength = 4
)

// ValidatePhone checks the fixed-length all-digit number format.
func ValidatePhone(phone string) error {
	if len(phone) != PhoneLength || !isDigits(phone) {
		return fmt.Errorf("%w: phone must be %d digits", ErrInvalidArgument, PhoneLength)
	}
	return nil
}

// ValidatePIN checks the fixed-length all-digit PIN format.
func ValidatePIN(pin string) error {
	if len(pin) != PINLength || !isDigits(pin) {
		return fmt.Errorf("%w: PIN must be %d digits", ErrInvalidArgument, PINLength)
	}
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}
