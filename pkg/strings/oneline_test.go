package strings

import (
	"testing"
)

func TestOneLine(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"long string truncated", "hello world this is a long string", 15, "hello world ..."},
		{"compose stderr joined", "exit status 1: \nError response from daemon:\n\tpull access denied", 80, "exit status 1: Error response from daemon: pull access denied"},
		{"carriage returns handled", "hello\r\nworld", 20, "hello world"},
		{"whitespace only becomes empty", "   \n\t  ", 10, ""},
		{"unicode truncation safe", "größenänderung", 6, "grö..."},
		{"maxLen clamped", "hello", 0, "h..."},
		{"negative maxLen clamped", "hello", -5, "h..."},
		{"short string with small maxLen unchanged", "hi", 3, "hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OneLine(tt.input, tt.maxLen); got != tt.expected {
				t.Errorf("OneLine(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.expected)
			}
		})
	}
}
