package validation

import (
	"errors"
	"strings"
)

// commonPasswords is matched case-insensitively against the whole password.
var commonPasswords = map[string]bool{
	"password": true, "12345": true, "123456": true, "1234567": true, "12345678": true,
	"qwerty": true, "admin": true, "letmein": true, "welcome": true, "monkey": true,
	"dragon": true, "master": true, "sunshine": true, "abc123": true, "iloveyou": true,
	"password1": true, "11111": true, "111111": true, "00000": true, "000000": true,
}

// ValidatePassword validates password length and rejects well-known passwords
func ValidatePassword(password string) error {
	if len(password) < 5 {
		return errors.New("password must be at least 5 characters")
	}

	// Maximum length: 72 bytes (bcrypt limitation)
	// bcrypt silently truncates passwords longer than 72 bytes
	if len(password) > 72 {
		return errors.New("password must not exceed 72 characters")
	}

	if commonPasswords[strings.ToLower(password)] {
		return errors.New("password is too common, please choose a stronger one")
	}

	return nil
}
