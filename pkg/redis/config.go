package redis

import (
	"time"

	"github.com/Alijeyrad/dentlab_backend/config"
)

type Config struct {
	Addr     string
	DB       int
	Username string
	Password string

	PoolSize     int
	MinIdleConns int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// FromCentralConfig fills unset values from DefaultConfig.
func FromCentralConfig(c config.RedisConfig) Config {
	d := DefaultConfig()
	cfg := Config{
		Addr:         c.Addr,
		DB:           c.DB,
		Username:     c.Username,
		Password:     c.Password,
		PoolSize:     positive(c.PoolSize, d.PoolSize),
		MinIdleConns: positive(c.MinIdleConns, d.MinIdleConns),
		DialTimeout:  seconds(c.DialTimeoutSeconds, d.DialTimeout),
		ReadTimeout:  seconds(c.ReadTimeoutSeconds, d.ReadTimeout),
		WriteTimeout: seconds(c.WriteTimeoutSeconds, d.WriteTimeout),
	}
	return cfg
}

func positive(v, d int) int {
	if v > 0 {
		return v
	}
	return d
}

func seconds(v int, d time.Duration) time.Duration {
	if v > 0 {
		return time.Duration(v) * time.Second
	}
	return d
}
