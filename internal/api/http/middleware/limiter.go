package middleware

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	fiberredis "github.com/gofiber/storage/redis/v3"
	"github.com/redis/go-redis/v9"
)

func limitReached(c fiber.Ctx) error {
	return deny(c, fiber.StatusTooManyRequests, "Too many requests, please try again later")
}

// NewLimiterWithRedis is the global sliding-window limit shared by every
// instance through Redis.
func NewLimiterWithRedis(rdb *redis.Client) fiber.Handler {
	return limiter.New(limiter.Config{
		Storage:           fiberredis.NewFromConnection(rdb),
		Max:               120,
		Expiration:        time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		LimitReached:      limitReached,
	})
}

// CredentialLimiter throttles login and password-reset attempts per IP.
// A nil storage keeps counters in memory.
func CredentialLimiter(storage fiber.Storage) fiber.Handler {
	return limiter.New(limiter.Config{
		Storage:           storage,
		Max:               10,
		Expiration:        15 * time.Minute,
		LimiterMiddleware: limiter.FixedWindow{},
		LimitReached:      limitReached,
		KeyGenerator: func(c fiber.Ctx) string {
			return "cred:" + c.IP()
		},
	})
}

// RedisStorage adapts a go-redis client to fiber's storage interface.
func RedisStorage(rdb *redis.Client) fiber.Storage {
	return fiberredis.NewFromConnection(rdb)
}
