package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
	pasetotoken "github.com/Alijeyrad/dentlab_backend/pkg/paseto"
)

// Sessions tracks live refresh sessions. A token whose session is gone is
// rejected even when its signature is still valid.
type Sessions interface {
	Create(ctx context.Context, id uuid.UUID, sub pasetotoken.Subject, ttl time.Duration) error
	Get(ctx context.Context, id uuid.UUID) (*pasetotoken.Subject, error)
	Touch(ctx context.Context, id uuid.UUID, ttl time.Duration) error
	Revoke(ctx context.Context, id uuid.UUID) error
	RevokeAll(ctx context.Context, userID uuid.UUID) error
}

func redisKeySession(id uuid.UUID) string      { return "session:" + id.String() }
func redisKeyUserSessions(id uuid.UUID) string { return "session:user:" + id.String() }

type redisSessions struct {
	rdb redis.Cmdable
}

func NewRedisSessions(rdb redis.Cmdable) Sessions {
	return &redisSessions{rdb: rdb}
}

// the value is kind|role|userID
func encodeSubject(sub pasetotoken.Subject) string {
	return string(sub.Kind) + "|" + string(sub.Role) + "|" + sub.UserID.String()
}

func decodeSubject(v string) (*pasetotoken.Subject, error) {
	parts := strings.Split(v, "|")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed session value")
	}
	id, err := uuid.Parse(parts[2])
	if err != nil {
		return nil, fmt.Errorf("malformed session user: %w", err)
	}
	return &pasetotoken.Subject{
		Kind:   constants.AccountKind(parts[0]),
		Role:   constants.Role(parts[1]),
		UserID: id,
	}, nil
}

func (s *redisSessions) Create(ctx context.Context, id uuid.UUID, sub pasetotoken.Subject, ttl time.Duration) error {
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, redisKeySession(id), encodeSubject(sub), ttl)
		p.SAdd(ctx, redisKeyUserSessions(sub.UserID), id.String())
		p.Expire(ctx, redisKeyUserSessions(sub.UserID), ttl)
		return nil
	})
	return err
}

func (s *redisSessions) Get(ctx context.Context, id uuid.UUID) (*pasetotoken.Subject, error) {
	v, err := s.rdb.Get(ctx, redisKeySession(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	return decodeSubject(v)
}

func (s *redisSessions) Touch(ctx context.Context, id uuid.UUID, ttl time.Duration) error {
	ok, err := s.rdb.Expire(ctx, redisKeySession(id), ttl).Result()
	if err != nil {
		return fmt.Errorf("redis expire session: %w", err)
	}
	if !ok {
		return ErrSessionNotFound
	}
	return nil
}

func (s *redisSessions) Revoke(ctx context.Context, id uuid.UUID) error {
	return s.rdb.Del(ctx, redisKeySession(id)).Err()
}

// RevokeAll ends every session of a user, used after a password reset.
func (s *redisSessions) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	ids, err := s.rdb.SMembers(ctx, redisKeyUserSessions(userID)).Result()
	if err != nil {
		return fmt.Errorf("redis list sessions: %w", err)
	}
	keys := []string{redisKeyUserSessions(userID)}
	for _, id := range ids {
		keys = append(keys, "session:"+id)
	}
	return s.rdb.Del(ctx, keys...).Err()
}
