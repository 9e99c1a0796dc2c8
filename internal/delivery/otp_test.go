package delivery

import (
	"errors"
	"testing"
)

func TestGenerateOTP_Shape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		code, err := GenerateOTP()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !ValidOTP(code) {
			t.Fatalf("generated code %q is not 6 digits", code)
		}
		seen[code] = true
	}
	if len(seen) < 450 {
		t.Fatalf("suspiciously few distinct codes: %d of 500", len(seen))
	}
}

func TestValidOTP(t *testing.T) {
	cases := map[string]bool{
		"000000":  true,
		"123456":  true,
		"12345":   false,
		"1234567": false,
		"12a456":  false,
		"":        false,
		"１２３４５６":  false,
	}
	for in, want := range cases {
		if got := ValidOTP(in); got != want {
			t.Errorf("ValidOTP(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewOTPPair_PropagatesError(t *testing.T) {
	boom := errors.New("entropy exhausted")
	calls := 0
	_, _, err := newOTPPair(func() (string, error) {
		calls++
		if calls == 2 {
			return "", boom
		}
		return "111111", nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected entropy error, got %v", err)
	}
}
