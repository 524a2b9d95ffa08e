package keyring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goGrant/token"
)

// RedisStore keeps key records in Redis. Records are CBOR encoded under
// "<prefix>:key:<id>"; "<prefix>:keys" lists ids, newest first.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	sealer *Sealer
	now    func() time.Time
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore returns a store using client. An empty prefix defaults to "ggk".
func NewRedisStore(client redis.UniversalClient, prefix string, opts ...Option) *RedisStore {
	if prefix == "" {
		prefix = "ggk"
	}
	o := applyOptions(opts)
	return &RedisStore{redis: client, prefix: prefix, sealer: o.sealer, now: time.Now}
}

func (s *RedisStore) listKey() string {
	return s.prefix + ":keys"
}

func (s *RedisStore) recordKey(id string) string {
	return s.prefix + ":key:" + id
}

// Add stores r and pushes it to the front of the list.
func (s *RedisStore) Add(ctx context.Context, r Record) (Record, error) {
	r, err := prepare(r, s.now())
	if err != nil {
		return Record{}, err
	}
	encoded, err := encodeRecord(r, s.sealer)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	created, err := s.redis.SetNX(ctx, s.recordKey(r.ID), encoded, 0).Result()
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !created {
		return Record{}, fmt.Errorf("%w: %s", ErrAlreadyExists, r.ID)
	}
	if err := s.redis.LPush(ctx, s.listKey(), r.ID).Err(); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return r, nil
}

// List returns every record, newest first.
func (s *RedisStore) List(ctx context.Context) ([]Record, error) {
	ids, err := s.redis.LRange(ctx, s.listKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.recordKey(id)
	}
	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	records := make([]Record, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// listed id without a record; skip it
			continue
		}
		r, err := decodeRecord([]byte(raw), s.sealer)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", ids[i], err)
		}
		records = append(records, r)
	}
	sortNewestFirst(records)
	return records, nil
}

// Retire marks id retired. Retiring a retired key is a no-op.
func (s *RedisStore) Retire(ctx context.Context, id string) error {
	key := s.recordKey(id)
	const maxRetries = 4

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}
			r, err := decodeRecord(data, s.sealer)
			if err != nil {
				return err
			}
			if !r.Active() {
				return nil
			}
			r.RetiredAt = s.now()
			encoded, err := encodeRecord(r, s.sealer)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, 0)
				return nil
			})
			return err
		}, key)

		switch {
		case err == nil:
			return nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, redis.Nil):
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		case errors.Is(err, ErrInvalidRecord):
			return err
		default:
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return fmt.Errorf("%w: retire %s: too much contention", ErrUnavailable, id)
}

// Signing implements Source.
func (s *RedisStore) Signing(ctx context.Context) (token.Key, error) {
	keys, err := s.Candidates(ctx)
	if err != nil {
		return token.Key{}, err
	}
	return signingFrom(keys)
}

// Candidates implements Source.
func (s *RedisStore) Candidates(ctx context.Context) ([]token.Key, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return activeKeys(records), nil
}

// Close is a no-op; the client belongs to the caller.
func (s *RedisStore) Close() error { return nil }
