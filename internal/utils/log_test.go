package utils

import "testing"

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{name: "non-positive limit", input: "hello world", limit: 0, expect: ""},
		{name: "shorter than limit", input: "hello", limit: 10, expect: "hello"},
		{name: "cut with ellipsis", input: "hello world", limit: 5, expect: "hello..."},
		{name: "surrounding whitespace", input: "  spaced  ", limit: 5, expect: "space..."},
		{name: "prompt lines are flattened", input: "Role: DS\n\n  Skills:\tpython", limit: 40, expect: "Role: DS Skills: python"},
		{name: "runes not bytes", input: "оценка кандидата", limit: 6, expect: "оценка..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}
