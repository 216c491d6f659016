package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Participant
	}{
		{
			name:     "quoted name with address",
			input:    `"John Doe" <john@example.com>`,
			expected: Participant{Name: "John Doe", Email: "john@example.com"},
		},
		{
			name:     "unquoted name with address",
			input:    "Jane Roe <jane@example.com>",
			expected: Participant{Name: "Jane Roe", Email: "jane@example.com"},
		},
		{
			name:     "bare address",
			input:    "bob@example.com",
			expected: Participant{Email: "bob@example.com"},
		},
		{
			name:     "angle brackets without name",
			input:    "<alice@example.com>",
			expected: Participant{Name: "", Email: "alice@example.com"},
		},
		{
			name:     "surrounding whitespace",
			input:    "  carol@example.com  ",
			expected: Participant{Email: "carol@example.com"},
		},
		{
			name:     "malformed token degrades to bare email",
			input:    "not really an address",
			expected: Participant{Email: "not really an address"},
		},
		{
			name:     "empty input",
			input:    "",
			expected: Participant{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseAddress(tt.input))
		})
	}
}

func TestParseAddressList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Participant
	}{
		{
			name:  "simple list",
			input: "a@example.com, b@example.com",
			expected: []Participant{
				{Email: "a@example.com"},
				{Email: "b@example.com"},
			},
		},
		{
			name:  "comma inside quoted display name does not split",
			input: `"Doe, John" <john@example.com>, jane@example.com`,
			expected: []Participant{
				{Name: "Doe, John", Email: "john@example.com"},
				{Email: "jane@example.com"},
			},
		},
		{
			name:  "mixed forms",
			input: `Jane Roe <jane@example.com>, bob@example.com`,
			expected: []Participant{
				{Name: "Jane Roe", Email: "jane@example.com"},
				{Email: "bob@example.com"},
			},
		},
		{
			name:     "empty tokens are skipped",
			input:    "a@example.com, , b@example.com",
			expected: []Participant{{Email: "a@example.com"}, {Email: "b@example.com"}},
		},
		{
			name:     "empty input",
			input:    "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseAddressList(tt.input))
		})
	}
}
