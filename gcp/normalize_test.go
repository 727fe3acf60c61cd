package gcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONResponse(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain json untouched",
			input:    `{"a":1}`,
			expected: `{"a":1}`,
		},
		{
			name:     "json fence",
			input:    "```json\n{\"a\":1}\n```",
			expected: `{"a":1}`,
		},
		{
			name:     "bare fence",
			input:    "```\n{\"a\":1}\n```",
			expected: `{"a":1}`,
		},
		{
			name:     "leading newlines removed",
			input:    "\n\n{\"a\":1}",
			expected: `{"a":1}`,
		},
		{
			name:     "newline runs collapsed",
			input:    "{\n\n\n\"a\":1\n\n}",
			expected: "{\n\"a\":1\n}",
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "  {\"a\":1}  ",
			expected: `{"a":1}`,
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, CleanJSONResponse(tc.input))
		})
	}
}
