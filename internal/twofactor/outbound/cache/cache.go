package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gatewarden/gatewarden/internal/pkg/clock"
	"github.com/gatewarden/gatewarden/internal/pkg/goerror"
	"github.com/gatewarden/gatewarden/internal/pkg/instrument"
	"github.com/gatewarden/gatewarden/internal/twofactor/entity"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrChallengeExpired is returned when a challenge outlived its window
// between lookup and decode.
var ErrChallengeExpired = errors.New("challenge session has expired")

// Cache stores challenge sessions in Redis, keyed by purpose and token hash.
// Expiry is enforced twice: by the Redis TTL and by the expires_at field, so
// a clock-skewed Redis node cannot extend a session.
type Cache struct {
	client *redis.Client
	clock  clock.Clocker
	ins    instrument.Instrumentation
	prefix string
}

func NewCache(client *redis.Client, clk clock.Clocker, ins instrument.Instrumentation) *Cache {
	return &Cache{
		client: client,
		clock:  clk,
		ins:    ins,
		prefix: "twofactor:challenge:",
	}
}

func (s *Cache) key(tokenHash string, p entity.ChallengePurpose) string {
	return fmt.Sprintf("%s%d:%s", s.prefix, p, tokenHash)
}

func (s *Cache) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("twofactor.outbound.cache").Start(ctx, name)
}

func (s *Cache) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Cache) Create(ctx context.Context, ch entity.Challenge) (err error) {
	ctx, span := s.startSpan(ctx, "Create")
	defer func() { s.endSpan(span, err) }()

	ttl := ch.ExpiresAt.Sub(s.clock.Now())
	if ttl <= 0 {
		return ErrChallengeExpired
	}

	payload, err := json.Marshal(ch)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, s.key(ch.TokenHash, ch.Purpose), payload, ttl).Err()
}

func (s *Cache) GetByTokenPurpose(ctx context.Context, tokenHash string, p entity.ChallengePurpose) (_ *entity.Challenge, err error) {
	ctx, span := s.startSpan(ctx, "GetByTokenPurpose")
	defer func() { s.endSpan(span, err) }()

	payload, err := s.client.Get(ctx, s.key(tokenHash, p)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, goerror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var ch entity.Challenge
	if err := json.Unmarshal(payload, &ch); err != nil {
		return nil, err
	}

	if !ch.ExpiresAt.After(s.clock.Now()) {
		if delErr := s.client.Del(ctx, s.key(tokenHash, p)).Err(); delErr != nil {
			return nil, delErr
		}
		return nil, goerror.ErrNotFound
	}

	return &ch, nil
}

func (s *Cache) Delete(ctx context.Context, tokenHash string, p entity.ChallengePurpose) (err error) {
	ctx, span := s.startSpan(ctx, "Delete")
	defer func() { s.endSpan(span, err) }()

	return s.client.Del(ctx, s.key(tokenHash, p)).Err()
}
