package domain

import (
	"fmt"
	"unicode/utf8"
)

// Availability is the derived uniqueness state of a candidate nickname
type Availability string

const (
	AvailabilityUnknown   Availability = "unknown"
	AvailabilityAvailable Availability = "available"
	AvailabilityTaken     Availability = "taken"
)

// ValidateNickname checks the local nickname format: 2-11 characters of
// Latin letters, digits, underscore or Hangul syllables, not all digits.
func ValidateNickname(nickname string) error {
	length := utf8.RuneCountInString(nickname)
	if length < NicknameMinLength || length > NicknameMaxLength {
		return fmt.Errorf("%w: must be %d-%d characters", ErrInvalidNickname, NicknameMinLength, NicknameMaxLength)
	}

	allDigits := true
	for _, r := range nickname {
		if !isNicknameRune(r) {
			return fmt.Errorf("%w: spaces and special characters are not allowed", ErrInvalidNickname)
		}
		if r < '0' || r > '9' {
			allDigits = false
		}
	}
	if allDigits {
		return fmt.Errorf("%w: must not be only digits", ErrInvalidNickname)
	}
	return nil
}

func isNicknameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		return true
	case r >= 0xAC00 && r <= 0xD7A3: // Hangul syllables
		return true
	}
	return false
}
