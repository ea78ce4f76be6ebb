package validator

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
)

// Required validates that a string is not empty after trimming whitespace.
func Required(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return strings.TrimSpace(value) != ""
		},
		Error: ValidationError{Field: field, Message: "field is required"},
	}
}

func MinLen(field, value string, min int) Rule {
	return Rule{
		Check: func() bool {
			return len(value) >= min
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be at least %d characters long", min),
		},
	}
}

func MaxLen(field, value string, max int) Rule {
	return Rule{
		Check: func() bool {
			return len(value) <= max
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be at most %d characters long", max),
		},
	}
}

// ValidEmail validates a bare address (no display name) whose domain has at
// least one dot.
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			if strings.TrimSpace(value) == "" {
				return false
			}
			addr, err := mail.ParseAddress(value)
			if err != nil || addr.Address != value {
				return false
			}

			local, domain, ok := strings.Cut(addr.Address, "@")
			if !ok || local == "" {
				return false
			}
			if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
				return false
			}
			for part := range strings.SplitSeq(domain, ".") {
				if part == "" {
					return false
				}
			}
			return true
		},
		Error: ValidationError{Field: field, Message: "must be a valid email address"},
	}
}

// Digits validates that value consists of between min and max ASCII digits.
func Digits(field, value string, min, max int) Rule {
	return Rule{
		Check: func() bool {
			if len(value) < min || len(value) > max {
				return false
			}
			for _, r := range value {
				if r > unicode.MaxASCII || !unicode.IsDigit(r) {
					return false
				}
			}
			return true
		},
		Error: ValidationError{
			Field:   field,
			Message: digitsMessage(min, max),
		},
	}
}

func digitsMessage(min, max int) string {
	if min == max {
		return fmt.Sprintf("must be exactly %d digits", min)
	}
	return fmt.Sprintf("must be %d to %d digits", min, max)
}

// Matches validates that value equals other, e.g. a password confirmation.
func Matches(field, value, other, message string) Rule {
	if message == "" {
		message = "values do not match"
	}
	return Rule{
		Check: func() bool {
			return value == other
		},
		Error: ValidationError{Field: field, Message: message},
	}
}

// Accepted validates that a checkbox-like flag is set.
func Accepted(field string, value bool, message string) Rule {
	if message == "" {
		message = "must be accepted"
	}
	return Rule{
		Check: func() bool {
			return value
		},
		Error: ValidationError{Field: field, Message: message},
	}
}

// OneOf validates that value is in options.
func OneOf[T comparable](field string, value T, options ...T) Rule {
	return Rule{
		Check: func() bool {
			for _, o := range options {
				if o == value {
					return true
				}
			}
			return false
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be one of %v", options),
		},
	}
}
