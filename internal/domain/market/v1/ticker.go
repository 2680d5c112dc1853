package marketv1

import (
	"errors"
	"strings"
)

var (
	// ErrTickerLength is returned when a ticker is not 3 to 5 characters long.
	ErrTickerLength = errors.New("ticker must be between 3 and 5 characters")
	// ErrTickerChars is returned when a ticker contains non-letter characters.
	ErrTickerChars = errors.New("ticker must consist of ASCII letters")
)

// Ticker is a 3-5 character stock symbol of uppercase ASCII letters.
type Ticker string

// ParseTicker validates and normalizes a raw ticker string.
func ParseTicker(raw string) (Ticker, error) {
	if len(raw) < 3 || len(raw) > 5 {
		return "", ErrTickerLength
	}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return "", ErrTickerChars
		}
	}
	return Ticker(strings.ToUpper(raw)), nil
}

func (t Ticker) String() string {
	return string(t)
}
