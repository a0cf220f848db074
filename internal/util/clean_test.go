package util

import "testing"

func TestCleanText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"nul and line endings", "Hello\r\n\r\n\r\nWorld\x00!", "Hello\n\nWorld !"},
		{"collapse spaces and tabs", "a  \t b", "a b"},
		{"cr only", "a\rb", "a\nb"},
		{"limit newlines", "a\n\n\n\n\nb", "a\n\nb"},
		{"trim", "  a  ", "a"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanText(tc.in); got != tc.want {
				t.Fatalf("CleanText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
