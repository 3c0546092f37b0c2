// Package validation checks user-typed city names before they reach the pipeline.
package validation

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrCityEmpty is returned when the input is empty or whitespace-only after trim.
	ErrCityEmpty = errors.New("city is required")
	// ErrCityTooLong is returned when the trimmed input exceeds the rune limit.
	ErrCityTooLong = errors.New("city name too long")
	// ErrCityInvalidChars is returned when the input contains a control character or invalid UTF-8.
	ErrCityInvalidChars = errors.New("city name contains invalid characters")
)

// ValidateCity trims input and returns it when it is non-empty, at most maxLen
// runes (0 disables the check) and free of control characters. Any other text
// is passed on; the client URL-encodes it.
func ValidateCity(input string, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	if len(r) == 0 {
		return "", ErrCityEmpty
	}
	if maxLen > 0 && len(r) > maxLen {
		return "", ErrCityTooLong
	}
	for _, c := range r {
		if unicode.IsControl(c) || c == utf8.RuneError {
			return "", ErrCityInvalidChars
		}
	}
	return s, nil
}
