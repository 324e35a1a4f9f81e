package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const presenceSetKey = "presence:online"

func presenceKey(id uuid.UUID) string { return "presence:user:" + id.String() }

// Presence counts open sockets per user in Redis so every instance sees
// the same online set. The per-user counter expires after ttl unless
// touched, which clears users of an instance that died without cleanup.
type Presence struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewPresence(rdb redis.Cmdable, ttl time.Duration) *Presence {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Presence{rdb: rdb, ttl: ttl}
}

func (p *Presence) Connect(ctx context.Context, id uuid.UUID) error {
	if p == nil {
		return nil
	}
	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, presenceKey(id))
		pipe.Expire(ctx, presenceKey(id), p.ttl)
		pipe.SAdd(ctx, presenceSetKey, id.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("presence connect: %w", err)
	}
	return nil
}

func (p *Presence) Touch(ctx context.Context, id uuid.UUID) error {
	if p == nil {
		return nil
	}
	return p.rdb.Expire(ctx, presenceKey(id), p.ttl).Err()
}

func (p *Presence) Disconnect(ctx context.Context, id uuid.UUID) error {
	if p == nil {
		return nil
	}
	n, err := p.rdb.Decr(ctx, presenceKey(id)).Result()
	if err != nil {
		return fmt.Errorf("presence disconnect: %w", err)
	}
	if n > 0 {
		return nil
	}
	_, err = p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, presenceKey(id))
		pipe.SRem(ctx, presenceSetKey, id.String())
		return nil
	})
	return err
}

func (p *Presence) IsOnline(ctx context.Context, id uuid.UUID) (bool, error) {
	if p == nil {
		return false, nil
	}
	n, err := p.rdb.Exists(ctx, presenceKey(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Online lists users with a live counter, pruning stale set members.
func (p *Presence) Online(ctx context.Context) ([]uuid.UUID, error) {
	if p == nil {
		return nil, nil
	}
	members, err := p.rdb.SMembers(ctx, presenceSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("presence members: %w", err)
	}
	out := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		ok, err := p.IsOnline(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			p.rdb.SRem(ctx, presenceSetKey, m)
			continue
		}
		out = append(out, id)
	}
	return out, nil
}
