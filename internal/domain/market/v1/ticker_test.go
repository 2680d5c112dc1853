package marketv1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTicker_Valid(t *testing.T) {
	tests := []struct {
		input string
		want  Ticker
	}{
		{"abc", "ABC"},
		{"ABC", "ABC"},
		{"AbCd", "ABCD"},
		{"vwxyz", "VWXYZ"},
	}

	for _, tt := range tests {
		got, err := ParseTicker(tt.input)
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseTicker_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"too short", "AB"},
		{"too long", "ABCDEF"},
		{"digits", "AB1"},
		{"space", "AB C"},
		{"punctuation", "AB-C"},
		{"non ascii", "ÅBC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTicker(tt.input)
			assert.Error(t, err)
		})
	}
}
