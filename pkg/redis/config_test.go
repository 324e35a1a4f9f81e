package redis

import (
	"testing"
	"time"

	"github.com/Alijeyrad/dentlab_backend/config"
)

func TestFromCentralConfig(t *testing.T) {
	got := FromCentralConfig(config.RedisConfig{Addr: "r:6379", PoolSize: 32, ReadTimeoutSeconds: 9})
	if got.Addr != "r:6379" || got.PoolSize != 32 {
		t.Errorf("explicit values lost: %+v", got)
	}
	if got.ReadTimeout != 9*time.Second {
		t.Errorf("ReadTimeout = %v", got.ReadTimeout)
	}
	d := DefaultConfig()
	if got.MinIdleConns != d.MinIdleConns || got.DialTimeout != d.DialTimeout || got.WriteTimeout != d.WriteTimeout {
		t.Errorf("defaults not applied: %+v", got)
	}
}

func TestNewRedisRequiresAddr(t *testing.T) {
	if _, err := NewRedis(Config{}); err == nil {
		t.Error("expected error for empty addr")
	}
}
