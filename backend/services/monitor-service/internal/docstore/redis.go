package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const maxTxRetries = 10

// RedisStore keeps the whole document tree as one JSON value and announces
// changed paths on a pub/sub channel. Writes use WATCH/MULTI so concurrent
// writers never lose each other's updates.
type RedisStore struct {
	client  *redis.Client
	key     string
	channel string
	logger  *zap.Logger
}

// NewRedisStore builds a store rooted at key; change events go to key+":changes".
func NewRedisStore(client *redis.Client, key string, logger *zap.Logger) *RedisStore {
	if key == "" {
		key = "solarx:doc"
	}
	return &RedisStore{
		client:  client,
		key:     key,
		channel: key + ":changes",
		logger:  logger,
	}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, path string) (any, error) {
	root, err := s.load(ctx, s.client)
	if err != nil {
		return nil, err
	}
	return getAt(root, splitPath(path)), nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, path string, value any) error {
	normalized, err := normalize(value)
	if err != nil {
		return err
	}
	segs := splitPath(path)
	return s.mutate(ctx, segs, func(root map[string]any) map[string]any {
		return setAt(root, segs, normalized)
	})
}

// Update implements Store.
func (s *RedisStore) Update(ctx context.Context, path string, values map[string]any) error {
	base := splitPath(path)
	normalized := make(map[string]any, len(values))
	for k, v := range values {
		n, err := normalize(v)
		if err != nil {
			return err
		}
		normalized[k] = n
	}
	return s.mutate(ctx, base, func(root map[string]any) map[string]any {
		for k, v := range normalized {
			segs := append(append([]string{}, base...), splitPath(k)...)
			root = setAt(root, segs, v)
		}
		return root
	})
}

// OnValue implements Store. Listeners run on a dedicated goroutine per subscription.
func (s *RedisStore) OnValue(ctx context.Context, path string, listener Listener) (func(), error) {
	segs := splitPath(path)
	subCtx, cancel := context.WithCancel(ctx)

	pubsub := s.client.Subscribe(subCtx, s.channel)
	if _, err := pubsub.Receive(subCtx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, fmt.Errorf("docstore: subscribe: %w", err)
	}

	initial, err := s.Get(subCtx, path)
	if err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, err
	}
	listener(initial)

	go func() {
		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if !overlaps(segs, splitPath(msg.Payload)) {
					continue
				}
				value, err := s.Get(subCtx, path)
				if err != nil {
					if subCtx.Err() == nil {
						s.logger.Warn("docstore: refresh after change failed", zap.String("path", path), zap.Error(err))
					}
					continue
				}
				listener(value)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			_ = pubsub.Close()
		})
	}, nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) load(ctx context.Context, cmd getter) (map[string]any, error) {
	raw, err := cmd.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("docstore: load: %w", err)
	}
	root := map[string]any{}
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("docstore: corrupt document at %s: %w", s.key, err)
	}
	return root, nil
}

func (s *RedisStore) mutate(ctx context.Context, changed []string, apply func(map[string]any) map[string]any) error {
	txf := func(tx *redis.Tx) error {
		root, err := s.load(ctx, tx)
		if err != nil {
			return err
		}
		data, err := json.Marshal(apply(root))
		if err != nil {
			return fmt.Errorf("docstore: encode document: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, data, 0)
			pipe.Publish(ctx, s.channel, joinPath(changed))
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, s.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("docstore: %s: too much contention", s.key)
}
