package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix     = "doc:"
	channelPrefix = "doc."
)

// Redis is the multi-client Store backend: one Redis string key per path
// holding the JSON document, and a pub/sub channel per path carrying the
// full document after every write so all connected clients observe it.
// Read-merge-write for Update; last writer wins, as everywhere else.
type Redis struct {
	client *redis.Client
	logger *zap.Logger

	mu     sync.Mutex
	subs   map[*redisSub]struct{}
	closed bool
}

type redisSub struct {
	pubsub *redis.PubSub
	out    chan []byte
	once   sync.Once
}

var _ Store = (*Redis)(nil)

// NewRedis wraps an already-connected client.
func NewRedis(client *redis.Client, logger *zap.Logger) *Redis {
	return &Redis{
		client: client,
		logger: logger,
		subs:   make(map[*redisSub]struct{}),
	}
}

func (r *Redis) Get(ctx context.Context, path string, out any) error {
	raw, err := r.client.Get(ctx, keyPrefix+path).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (r *Redis) Set(ctx context.Context, path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.write(ctx, path, raw)
}

func (r *Redis) Update(ctx context.Context, path string, fields map[string]any) error {
	raw, err := r.client.Get(ctx, keyPrefix+path).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	merged, err := mergeInto(raw, fields)
	if err != nil {
		return err
	}
	return r.write(ctx, path, merged)
}

func (r *Redis) write(ctx context.Context, path string, raw []byte) error {
	if err := r.client.Set(ctx, keyPrefix+path, raw, 0).Err(); err != nil {
		return err
	}
	return r.client.Publish(ctx, channelPrefix+path, raw).Err()
}

func (r *Redis) Watch(ctx context.Context, path string) (<-chan []byte, func(), error) {
	pubsub := r.client.Subscribe(ctx, channelPrefix+path)
	// Force the subscription onto the wire before the snapshot read, so no
	// write between the two is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}

	sub := &redisSub{pubsub: pubsub, out: make(chan []byte, watchBuffer)}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = pubsub.Close()
		return nil, nil, ErrClosed
	}
	r.subs[sub] = struct{}{}
	r.mu.Unlock()

	// A write published between Subscribe and this read is already reflected
	// in the snapshot but may still be delivered from the pub/sub buffer after
	// it, briefly replaying the older value. The next write converges, which
	// is all last-writer-wins promises.
	if raw, err := r.client.Get(ctx, keyPrefix+path).Bytes(); err == nil {
		sub.out <- raw
	} else if !errors.Is(err, redis.Nil) {
		r.logger.Warn("watch snapshot read failed", zap.String("path", path), zap.Error(err))
	}

	go func() {
		defer sub.close()
		for msg := range pubsub.Channel() {
			select {
			case sub.out <- []byte(msg.Payload):
			default:
				select {
				case <-sub.out:
				default:
				}
				select {
				case sub.out <- []byte(msg.Payload):
				default:
				}
			}
		}
	}()

	cancel := func() {
		r.mu.Lock()
		delete(r.subs, sub)
		r.mu.Unlock()
		_ = pubsub.Close() // closes pubsub.Channel(), which closes out
	}
	return sub.out, cancel, nil
}

func (s *redisSub) close() {
	s.once.Do(func() { close(s.out) })
}

func (r *Redis) Close() error {
	r.mu.Lock()
	r.closed = true
	subs := make([]*redisSub, 0, len(r.subs))
	for sub := range r.subs {
		subs = append(subs, sub)
	}
	r.subs = make(map[*redisSub]struct{})
	r.mu.Unlock()

	for _, sub := range subs {
		_ = sub.pubsub.Close()
	}
	return r.client.Close()
}
