package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ChangeFeed notifies that the movements collection changed. Payloads are
// the id of the record that caused the change; listeners re-query anyway.
type ChangeFeed interface {
	Publish(ctx context.Context, id string) error
	Subscribe(ctx context.Context) (Subscription, error)
}

// Subscription is one standing listener. Notifications is closed once the
// subscription ends, either by Close or because the feed broke.
type Subscription interface {
	Notifications() <-chan string
	Close() error
}

// ========================================
// REDIS PUB/SUB
// ========================================

type redisChangeFeed struct {
	client  *redis.Client
	channel string
}

// NewRedisChangeFeed publishes and listens on a Redis pub/sub channel, so
// every API instance sharing the database sees every write.
func NewRedisChangeFeed(client *redis.Client, channel string) ChangeFeed {
	return &redisChangeFeed{client: client, channel: channel}
}

func (f *redisChangeFeed) Publish(ctx context.Context, id string) error {
	if err := f.client.Publish(ctx, f.channel, id).Err(); err != nil {
		return fmt.Errorf("publish change on %s: %w", f.channel, err)
	}
	return nil
}

func (f *redisChangeFeed) Subscribe(ctx context.Context) (Subscription, error) {
	pubsub := f.client.Subscribe(ctx, f.channel)

	// Receive blocks until the server confirms the subscription.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", f.channel, err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		out:    make(chan string, 16),
	}
	go sub.forward(pubsub.Channel())

	log.Info().Str("channel", f.channel).Msg("[FEED] subscribed to change channel")
	return sub, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	out    chan string
	once   sync.Once
}

func (s *redisSubscription) forward(in <-chan *redis.Message) {
	defer close(s.out)
	for msg := range in {
		select {
		case s.out <- msg.Payload:
		default:
			// a refresh is already pending; it will see this write too
		}
	}
}

func (s *redisSubscription) Notifications() <-chan string {
	return s.out
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		err = s.pubsub.Close()
	})
	return err
}

// ========================================
// IN-PROCESS
// ========================================

// LocalChangeFeed delivers notifications within one process. Used when
// Redis is unavailable and in tests.
type LocalChangeFeed struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*localSubscription
	closed bool
}

func NewLocalChangeFeed() *LocalChangeFeed {
	return &LocalChangeFeed{subs: make(map[int]*localSubscription)}
}

func (f *LocalChangeFeed) Publish(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return fmt.Errorf("change feed closed")
	}
	for _, sub := range f.subs {
		select {
		case sub.out <- id:
		default:
		}
	}
	return nil
}

func (f *LocalChangeFeed) Subscribe(_ context.Context) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, fmt.Errorf("change feed closed")
	}
	sub := &localSubscription{feed: f, id: f.nextID, out: make(chan string, 16)}
	f.subs[sub.id] = sub
	f.nextID++
	return sub, nil
}

// Break ends every subscription as if the transport failed.
func (f *LocalChangeFeed) Break() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	for id, sub := range f.subs {
		delete(f.subs, id)
		sub.once.Do(func() { close(sub.out) })
	}
}

type localSubscription struct {
	feed *LocalChangeFeed
	id   int
	out  chan string
	once sync.Once
}

func (s *localSubscription) Notifications() <-chan string {
	return s.out
}

func (s *localSubscription) Close() error {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()

	delete(s.feed.subs, s.id)
	s.once.Do(func() { close(s.out) })
	return nil
}
