package password

import (
	"errors"
	"strings"
	"testing"
)

// cheap parameters keep the suite fast
func testHasher() *Hasher {
	return NewHasher(Config{MemoryKiB: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
}

func TestHashFormat(t *testing.T) {
	hash, err := testHasher().Hash("correcthorsebatterystaple")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Errorf("Hash() format invalid, got %s", hash)
	}
	if parts := strings.Split(hash, "$"); len(parts) != 6 {
		t.Errorf("Hash() expected 6 parts, got %d", len(parts))
	}
}

func TestVerify(t *testing.T) {
	h := testHasher()
	hash, err := h.Hash("mysecretpassword")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		hash     string
		password string
		wantErr  error
	}{
		{"correct password", hash, "mysecretpassword", nil},
		{"wrong password", hash, "wrongpassword", ErrMismatch},
		{"empty password", hash, "", ErrMismatch},
		{"empty hash", "", "x", ErrInvalidHash},
		{"wrong algorithm", "$argon2i$v=19$m=65536,t=3,p=2$c29tZXNhbHQ$c29tZWhhc2g", "x", ErrInvalidHash},
		{"malformed params", "$argon2id$v=19$invalid$c29tZXNhbHQ$c29tZWhhc2g", "x", ErrInvalidHash},
		{"other version", "$argon2id$v=16$m=65536,t=3,p=2$c29tZXNhbHQ$c29tZWhhc2g", "x", ErrIncompatibleVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := h.Verify(tt.hash, tt.password); !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestVerifyAcrossParameterSets(t *testing.T) {
	old := testHasher()
	hash, _ := old.Hash("pw-123456")

	current := NewHasher(Config{MemoryKiB: 16 * 1024, Iterations: 2, Parallelism: 1})
	if err := current.Verify(hash, "pw-123456"); err != nil {
		t.Errorf("Verify() across params = %v", err)
	}
	if !current.NeedsRehash(hash) {
		t.Error("NeedsRehash() = false for older params")
	}
	if old.NeedsRehash(hash) {
		t.Error("NeedsRehash() = true for current params")
	}
}

func TestLowMemoryMode(t *testing.T) {
	h := NewHasher(Config{MemoryKiB: 64 * 1024, LowMemoryMode: true})
	if h.p.Memory != 32*1024 {
		t.Errorf("memory = %d, want 32768", h.p.Memory)
	}
	if h.p.Iterations != 3 || h.p.KeyLength != 32 {
		t.Errorf("zero fields not defaulted: %+v", h.p)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"", ErrTooShort},
		{"  abc  ", ErrTooShort},
		{"abcdef", nil},
	}
	for _, tt := range tests {
		if got := Validate(tt.in); got != tt.want {
			t.Errorf("Validate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		length int
		want   int
	}{
		{0, 12},
		{-5, 12},
		{8, 8},
		{32, 32},
	}
	for _, tt := range tests {
		got, err := Generate(tt.length)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != tt.want {
			t.Errorf("Generate(%d) length = %d, want %d", tt.length, len(got), tt.want)
		}
		if strings.Trim(got, generateCharset) != "" {
			t.Errorf("Generate(%d) = %q has characters outside the charset", tt.length, got)
		}
	}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		p, _ := Generate(16)
		if seen[p] {
			t.Error("Generate() produced duplicate password")
		}
		seen[p] = true
	}
}

func BenchmarkHash(b *testing.B) {
	h := NewHasher(DefaultConfig())
	for i := 0; i < b.N; i++ {
		h.Hash("benchmarkpassword")
	}
}
