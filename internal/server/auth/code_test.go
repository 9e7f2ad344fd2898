package auth

import (
	"strconv"
	"testing"
)

func TestNewVerificationCode_Range(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		code, err := NewVerificationCode()
		if err != nil {
			t.Fatalf("NewVerificationCode error: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q is not 6 digits", code)
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("code %q is not numeric: %v", code, err)
		}
		if n < 100000 || n > 999999 {
			t.Fatalf("code %d out of range", n)
		}
		seen[code] = struct{}{}
	}
	if len(seen) < 900 {
		t.Fatalf("suspiciously few distinct codes: %d", len(seen))
	}
}
