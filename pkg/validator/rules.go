package validator

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

// E.164: plus sign, country code, up to 15 digits in total.
var e164Regex = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

// Required fails when value is blank after trimming whitespace.
func Required(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: ValidationError{Field: field, Message: "field is required", Code: "required"},
	}
}

// MaxLen fails when value has more than max runes.
func MaxLen(field, value string, max int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) <= max },
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be at most %d characters long", max),
			Code:    "max_length",
		},
	}
}

// OneOf fails when value is not in options.
func OneOf[T comparable](field string, value T, options []T) Rule {
	return Rule{
		Check: func() bool { return slices.Contains(options, value) },
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be one of: %v", options),
			Code:    "one_of",
		},
	}
}

// MinNum fails when value is below min.
func MinNum[T ~int | ~int32 | ~int64 | ~float64](field string, value, min T) Rule {
	return Rule{
		Check: func() bool { return value >= min },
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be at least %v", min),
			Code:    "min",
		},
	}
}

// ValidEmail fails unless value is a bare address with a dotted domain.
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			addr, err := mail.ParseAddress(value)
			if err != nil || addr.Address != strings.TrimSpace(value) {
				return false
			}
			local, domain, ok := strings.Cut(addr.Address, "@")
			return ok && local != "" &&
				strings.Contains(domain, ".") &&
				!strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
		},
		Error: ValidationError{Field: field, Message: "must be a valid email address", Code: "email"},
	}
}

// ValidPhone fails unless value is an E.164 phone number.
func ValidPhone(field, value string) Rule {
	return Rule{
		Check: func() bool { return e164Regex.MatchString(value) },
		Error: ValidationError{
			Field:   field,
			Message: "must be a phone number in E.164 format",
			Code:    "phone",
		},
	}
}

// ValidURL fails unless value is an absolute URL with one of schemes.
func ValidURL(field, value string, schemes ...string) Rule {
	if len(schemes) == 0 {
		schemes = []string{"http", "https"}
	}
	return Rule{
		Check: func() bool {
			u, err := url.Parse(value)
			return err == nil && u.Host != "" && slices.Contains(schemes, strings.ToLower(u.Scheme))
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be a valid URL with scheme %s", strings.Join(schemes, " or ")),
			Code:    "url",
		},
	}
}
