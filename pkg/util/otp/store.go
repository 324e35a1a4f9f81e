package otp

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	ErrExpired     = errors.New("OTP has expired or does not exist")
	ErrMaxAttempts = errors.New("too many incorrect OTP attempts")
	ErrLocked      = errors.New("too many failed attempts, try again later")
)

// Store keeps one outstanding code per (purpose, subject). Expiry is the
// key TTL, so nothing has to clean up after a process restart.
type Store struct {
	rdb redis.Cmdable
	cfg Config
}

func NewStore(rdb redis.Cmdable, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{rdb: rdb, cfg: cfg}, nil
}

func (s *Store) Config() Config { return s.cfg }

func keyCode(purpose, subject string) string     { return "otp:" + purpose + ":" + subject }
func keyAttempts(purpose, subject string) string { return "otp:attempts:" + purpose + ":" + subject }
func keyLock(purpose, subject string) string     { return "otp:lock:" + purpose + ":" + subject }

func (s *Store) locked(ctx context.Context, purpose, subject string) error {
	n, err := s.rdb.Exists(ctx, keyLock(purpose, subject)).Result()
	if err != nil {
		return fmt.Errorf("redis exists: %w", err)
	}
	if n > 0 {
		return ErrLocked
	}
	return nil
}

// Issue replaces any outstanding code and resets the attempt counter.
func (s *Store) Issue(ctx context.Context, purpose, subject string) (string, error) {
	if err := s.locked(ctx, purpose, subject); err != nil {
		return "", err
	}
	code, err := Generate(s.cfg.Length)
	if err != nil {
		return "", err
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, keyCode(purpose, subject), Hash(subject, code), s.cfg.TTL)
		p.Del(ctx, keyAttempts(purpose, subject))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	return code, nil
}

// Check consumes the code on success. After MaxAttempts misses the code is
// dropped and the subject is locked out for the configured window.
func (s *Store) Check(ctx context.Context, purpose, subject, code string) error {
	if err := s.locked(ctx, purpose, subject); err != nil {
		return err
	}
	hash, err := s.rdb.Get(ctx, keyCode(purpose, subject)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrExpired
	}
	if err != nil {
		return fmt.Errorf("redis get otp: %w", err)
	}

	if Verify(hash, subject, code) == nil {
		s.rdb.Del(ctx, keyCode(purpose, subject), keyAttempts(purpose, subject))
		return nil
	}

	attempts, err := s.rdb.Incr(ctx, keyAttempts(purpose, subject)).Result()
	if err != nil {
		return fmt.Errorf("redis incr attempts: %w", err)
	}
	s.rdb.Expire(ctx, keyAttempts(purpose, subject), s.cfg.TTL)
	if int(attempts) >= s.cfg.MaxAttempts {
		_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, keyLock(purpose, subject), 1, s.cfg.Lockout)
			p.Del(ctx, keyCode(purpose, subject), keyAttempts(purpose, subject))
			return nil
		})
		if err != nil {
			return fmt.Errorf("lock otp: %w", err)
		}
		return ErrMaxAttempts
	}
	return ErrMismatch
}

// PutToken stores an opaque single-use token (the reset token handed out
// after a verified code).
func (s *Store) PutToken(ctx context.Context, purpose, token, subject string) error {
	return s.rdb.Set(ctx, "token:"+purpose+":"+token, subject, s.cfg.TTL).Err()
}

// TakeToken returns the subject and deletes the token.
func (s *Store) TakeToken(ctx context.Context, purpose, token string) (string, error) {
	subject, err := s.rdb.GetDel(ctx, "token:"+purpose+":"+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrExpired
	}
	if err != nil {
		return "", fmt.Errorf("redis getdel token: %w", err)
	}
	return subject, nil
}
