package domain

import (
	"fmt"
	"strings"
)

// phoneDigits is the fixed length of a traveler phone number.
const phoneDigits = 10

// Identity is the traveler-facing name and phone pair. The phone number is
// the uniqueness key for the one-membership-per-departure rule, so it is
// validated here before it can reach any capacity or uniqueness logic.
type Identity struct {
	Name  string
	Phone string
}

// NewIdentity trims and validates a traveler identity.
func NewIdentity(name, phone string) (Identity, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" {
		return Identity{}, fmt.Errorf("name is required")
	}
	if err := validatePhone(phone); err != nil {
		return Identity{}, err
	}
	return Identity{Name: name, Phone: phone}, nil
}

func validatePhone(phone string) error {
	if len(phone) != phoneDigits {
		return fmt.Errorf("phone number must be exactly %d digits", phoneDigits)
	}
	for i := 0; i < len(phone); i++ {
		if phone[i] < '0' || phone[i] > '9' {
			return fmt.Errorf("phone number must contain only digits")
		}
	}
	return nil
}

// IsZero reports whether the identity is unset.
func (i Identity) IsZero() bool { return i.Name == "" && i.Phone == "" }
