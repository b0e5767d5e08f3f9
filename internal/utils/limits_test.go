package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	if got := AtoiDefault("42", 0); got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
	if got := AtoiDefault("", 10); got != 10 {
		t.Fatalf("got %d, want 10", got)
	}
	if got := AtoiDefault("x", 5); got != 5 {
		t.Fatalf("got %d, want 5", got)
	}
}

func TestLimitArg(t *testing.T) {
	cases := []struct {
		in       string
		def, max int
		want     int
	}{
		{"", 200, 1000, 200},
		{"50", 200, 1000, 50},
		{"0", 200, 1000, 200},
		{"-3", 200, 1000, 200},
		{"junk", 200, 1000, 200},
		{"5000", 200, 1000, 1000},
	}
	for _, tc := range cases {
		if got := LimitArg(tc.in, tc.def, tc.max); got != tc.want {
			t.Fatalf("LimitArg(%q, %d, %d) = %d, want %d", tc.in, tc.def, tc.max, got, tc.want)
		}
	}
}
