package postgres

import "testing"

func TestEscapeLike(t *testing.T) {
	cases := map[string]string{
		"visual":   "visual",
		"100%":     `100\%`,
		"a_b":      `a\_b`,
		`back\one`: `back\\one`,
	}
	for in, want := range cases {
		if got := escapeLike(in); got != want {
			t.Fatalf("escapeLike(%q) = %q, want %q", in, got, want)
		}
	}
}
