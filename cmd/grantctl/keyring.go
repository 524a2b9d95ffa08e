package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrEthical07/goGrant/keyring"
)

const defaultRedisConnectTimeout = 30 * time.Second

var errReadOnlyKeyring = errors.New("the static keyring is read-only; edit the YAML file instead")

// backends holds what openKeyring and openRedis started, so one close tears it down.
type backends struct {
	store  keyring.Store
	redis  redis.UniversalClient
	mini   *miniredis.Miniredis
	static bool
}

func (b *backends) Close() {
	if b.store != nil {
		_ = b.store.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.mini != nil {
		b.mini.Close()
	}
}

// openRedis connects to --redis-addr, retrying with exponential backoff until the
// connect timeout. An empty address starts an in-process miniredis, which loses all
// state on exit.
func (a *app) openRedis(ctx context.Context, b *backends) (redis.UniversalClient, error) {
	if b.redis != nil {
		return b.redis, nil
	}

	addr := a.v.GetString("redis-addr")
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start miniredis: %w", err)
		}
		b.mini = mr
		addr = mr.Addr()
		a.logger.Warn("using in-process miniredis; keys and counters are lost on exit", zap.String("addr", addr))
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	timeout := a.v.GetDuration("redis-connect-timeout")
	if timeout <= 0 {
		timeout = defaultRedisConnectTimeout
	}

	ping := func() (string, error) {
		return client.Ping(ctx).Result()
	}
	_, err := backoff.Retry(ctx, ping,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(timeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			a.logger.Warn("redis not ready", zap.String("addr", addr), zap.Error(err), zap.Duration("retry_in", next))
		}),
	)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}

	b.redis = client
	return client, nil
}

// storeOptions seals secrets when --master-key-b64 is set.
func (a *app) storeOptions() ([]keyring.Option, error) {
	encoded := a.v.GetString("master-key-b64")
	if encoded == "" {
		return nil, nil
	}
	masterKey, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode --master-key-b64: %w", err)
	}
	sealer, err := keyring.NewSealer(masterKey)
	if err != nil {
		return nil, err
	}
	return []keyring.Option{keyring.WithSealer(sealer)}, nil
}

// openKeyring opens the backend named by --keyring.
func (a *app) openKeyring(ctx context.Context) (*backends, error) {
	opts, err := a.storeOptions()
	if err != nil {
		return nil, err
	}

	b := &backends{}
	switch backend := a.v.GetString("keyring"); backend {
	case "static":
		path := a.v.GetString("keyring-file")
		store, err := keyring.LoadFile(path)
		if err != nil {
			return nil, err
		}
		b.store = store
		b.static = true
	case "sqlite":
		store, err := keyring.OpenSQL(ctx, a.v.GetString("sqlite-dsn"), opts...)
		if err != nil {
			return nil, err
		}
		b.store = store
	case "redis":
		client, err := a.openRedis(ctx, b)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.store = keyring.NewRedisStore(client, a.v.GetString("redis-prefix"), opts...)
	default:
		return nil, fmt.Errorf("unknown keyring backend %q (want static, sqlite or redis)", backend)
	}

	a.logger.Debug("keyring opened", zap.String("backend", a.v.GetString("keyring")))
	return b, nil
}
