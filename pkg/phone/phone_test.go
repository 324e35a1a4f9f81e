package phone

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		region  string
		want    string
		wantErr error
	}{
		{"empty stays empty", "  ", "", "", nil},
		{"national bangladesh mobile", "01712345678", "BD", "+8801712345678", nil},
		{"default region", "01712345678", "", "+8801712345678", nil},
		{"already international", "+1 650-253-0000", "BD", "+16502530000", nil},
		{"lowercase region", "(650) 253-0000", "us", "+16502530000", nil},
		{"letters", "call me", "BD", "", ErrInvalid},
		{"too short", "123", "BD", "", ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw, tt.region)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Normalize(%q) error = %v, want %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestIsMobile(t *testing.T) {
	if !IsMobile("+8801712345678") {
		t.Error("bangladesh mobile not detected")
	}
	if IsMobile("not a number") {
		t.Error("garbage reported as mobile")
	}
}
