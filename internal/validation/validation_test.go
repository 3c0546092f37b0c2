package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateCity_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "\t", "\n "} {
		if _, err := ValidateCity(in, 100); !errors.Is(err, ErrCityEmpty) {
			t.Errorf("ValidateCity(%q) error = %v, want ErrCityEmpty", in, err)
		}
	}
}

func TestValidateCity_InvalidChars(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"nul", "sea\x00ttle"},
		{"newline inside", "New\nYork"},
		{"escape", "Oslo\x1b[31m"},
		{"invalid utf8", "Z\xffrich"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ValidateCity(tc.input, 100); !errors.Is(err, ErrCityInvalidChars) {
				t.Errorf("error = %v, want ErrCityInvalidChars", err)
			}
		})
	}
}

func TestValidateCity_Valid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "Montreal", "Montreal"},
		{"space", "New York", "New York"},
		{"country suffix", "London,uk", "London,uk"},
		{"hyphen", "Saint-Jérôme", "Saint-Jérôme"},
		{"period", "St. John's", "St. John's"},
		{"unicode", "São Paulo", "São Paulo"},
		{"trimmed", "  Oslo  ", "Oslo"},
		{"digits", "Area51", "Area51"},
		{"parentheses", "Ho Chi Minh City (VN)", "Ho Chi Minh City (VN)"},
		{"slash", "Zürich/ZH", "Zürich/ZH"},
		{"query metacharacters", "a&appid=x#?%", "a&appid=x#?%"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateCity(tc.input, 100)
			if err != nil {
				t.Fatalf("ValidateCity() error = %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestValidateCity_LengthBoundaries(t *testing.T) {
	if _, err := ValidateCity(strings.Repeat("é", 100), 100); err != nil {
		t.Errorf("100 runes: error = %v", err)
	}
	if _, err := ValidateCity(strings.Repeat("a", 101), 100); !errors.Is(err, ErrCityTooLong) {
		t.Errorf("101 runes: error = %v, want ErrCityTooLong", err)
	}
	if _, err := ValidateCity(strings.Repeat("a", 500), 0); err != nil {
		t.Errorf("maxLen 0: error = %v, want nil", err)
	}
}
