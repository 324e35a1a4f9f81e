package password

import "github.com/Alijeyrad/dentlab_backend/config"

// Config holds the Argon2id parameters.
type Config struct {
	Algorithm   string
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	// caps memory at 32 MiB
	LowMemoryMode bool
}

func (c Config) params() Params {
	d := DefaultConfig()
	p := Params{
		Memory:      orDefault(c.MemoryKiB, d.MemoryKiB),
		Iterations:  orDefault(c.Iterations, d.Iterations),
		Parallelism: orDefault(c.Parallelism, d.Parallelism),
		SaltLength:  orDefault(c.SaltLength, d.SaltLength),
		KeyLength:   orDefault(c.KeyLength, d.KeyLength),
	}
	if c.LowMemoryMode && p.Memory > 32*1024 {
		p.Memory = 32 * 1024
	}
	return p
}

func orDefault[T comparable](v, d T) T {
	var zero T
	if v == zero {
		return d
	}
	return v
}

// DefaultConfig follows the OWASP argon2id baseline.
func DefaultConfig() Config {
	return Config{
		Algorithm:   "argon2id",
		MemoryKiB:   64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func FromCentralConfig(c config.PasswordConfig) Config {
	return Config{
		Algorithm:     c.Algorithm,
		MemoryKiB:     c.MemoryKiB,
		Iterations:    c.Iterations,
		Parallelism:   c.Parallelism,
		SaltLength:    c.SaltLength,
		KeyLength:     c.KeyLength,
		LowMemoryMode: c.LowMemoryMode,
	}
}
