package query

import (
	"errors"
	"strings"
	"unicode"
)

// ErrCityEmpty is returned when the city is empty or whitespace-only after trim.
var ErrCityEmpty = errors.New("city is required")

// ErrCityTooShort is returned when the city name is below the minimum length.
var ErrCityTooShort = errors.New("city name too short")

// ErrCityTooLong is returned when the city name exceeds the maximum length.
var ErrCityTooLong = errors.New("city name too long")

// ErrCityInvalidChars is returned when the city name contains disallowed characters.
var ErrCityInvalidChars = errors.New("city name contains invalid characters")

// ErrCoordOutOfRange is returned when latitude or longitude is outside its valid range.
var ErrCoordOutOfRange = errors.New("coordinates out of range")

const (
	cityMinLen = 2
	cityMaxLen = 64
)

// ValidateCity trims the input, enforces length bounds (in runes), and
// restricts to letters (Unicode), digits, space, comma, hyphen, apostrophe
// and period. Returns the trimmed name; normalization (lowercasing) is left
// to Query.Key.
func ValidateCity(input string) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	n := len(r)
	if n == 0 {
		return "", ErrCityEmpty
	}
	if n < cityMinLen {
		return "", ErrCityTooShort
	}
	if n > cityMaxLen {
		return "", ErrCityTooLong
	}
	for _, c := range r {
		if !isAllowedCityRune(c) {
			return "", ErrCityInvalidChars
		}
	}
	return s, nil
}

// ValidateCoord checks that lat is within [-90, 90] and lon within [-180, 180].
func ValidateCoord(lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrCoordOutOfRange
	}
	return nil
}

// isAllowedCityRune returns true for letters (Unicode), digits, space, comma,
// hyphen, apostrophe and period.
func isAllowedCityRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case ' ', ',', '-', '\'', '.':
		return true
	}
	return false
}
