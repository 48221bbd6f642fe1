package random

import (
	"strings"
	"testing"
)

func TestStringSecure(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		s, err := StringSecure(32)
		if err != nil {
			t.Fatal(err)
		}
		if len(s) != 32 {
			t.Fatalf("expected length 32, got %d", len(s))
		}
		for _, r := range s {
			if !strings.ContainsRune(charset, r) {
				t.Fatalf("unexpected rune %q", r)
			}
		}
		if _, dup := seen[s]; dup {
			t.Fatalf("duplicate value %q", s)
		}
		seen[s] = struct{}{}
	}
}
