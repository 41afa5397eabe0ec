package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"airline/pkg/envelope"
	"airline/pkg/logger"

	"github.com/redis/go-redis/v9"
)

type Broker struct {
	rdb      *redis.Client
	ctx      context.Context
	cancel   context.CancelFunc
	handlers sync.Map
	wg       sync.WaitGroup
	log      *logger.Logger
}

type HandlerFunc func(envelope.Envelope)

// New connects to redisURL and verifies the connection.
func New(redisURL string, log *logger.Logger) (*Broker, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithCancel(context.Background())

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		cancel()
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return newBroker(rdb, ctx, cancel, log), nil
}

func newBroker(rdb *redis.Client, ctx context.Context, cancel context.CancelFunc, log *logger.Logger) *Broker {
	return &Broker{
		rdb:    rdb,
		ctx:    ctx,
		cancel: cancel,
		log:    log.Named("broker"),
	}
}

func (b *Broker) Publish(ctx context.Context, channel string, env envelope.Envelope) error {
	data, err := env.Marshal()
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, channel, data).Err()
}

// Broadcast wraps data in an event envelope and publishes it on channel.
func (b *Broker) Broadcast(ctx context.Context, channel, action, service string, data interface{}) error {
	env, err := envelope.NewEvent(action, service, data)
	if err != nil {
		return err
	}
	return b.Publish(ctx, channel, env)
}

// Subscribe starts a goroutine delivering messages on channels to the
// handlers registered with On. It stops when the broker is closed.
func (b *Broker) Subscribe(channels ...string) {
	sub := b.rdb.Subscribe(b.ctx, channels...)
	ch := sub.Channel()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer sub.Close()
		for {
			select {
			case <-b.ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				b.dispatch(msg.Payload)
			}
		}
	}()
}

func (b *Broker) dispatch(payload string) {
	env, err := envelope.Unmarshal([]byte(payload))
	if err != nil {
		b.log.Warn("discarding malformed message", logger.Error(err))
		return
	}
	if fn, ok := b.handlers.Load(env.Action); ok {
		fn.(HandlerFunc)(env)
	}
}

func (b *Broker) On(action string, fn HandlerFunc) {
	b.handlers.Store(action, fn)
}

func (b *Broker) Close() {
	b.cancel()
	b.wg.Wait()
	b.rdb.Close()
}
