// Package broadcast announces slot writes over an AMQP fanout exchange.
//
// It wraps any kv.Slot: values still live in the wrapped backend, while change
// notifications travel through the broker. Useful when views share a backend
// whose own notifications do not reach them (a network volume, separate
// containers).
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Sorinen/service-boutique/internal/kv"
)

const publishTimeout = 5 * time.Second

// Message is the body published after every write.
type Message struct {
	Key    string    `json:"key"`
	Origin string    `json:"origin"`
	At     time.Time `json:"at"`
}

// Store is a kv.Slot whose writes are announced to every other subscriber.
type Store struct {
	inner    kv.Slot
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	logger   *zap.Logger

	mu     sync.Mutex
	closed bool
}

// Dial connects to the broker at url and declares the fanout exchange.
func Dial(url, exchange string, inner kv.Slot, logger *zap.Logger) (*Store, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"fanout", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		inner:    inner,
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		logger:   logger.Named("kv.broadcast"),
	}, nil
}

func (s *Store) Origin() string { return s.inner.Origin() }

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	return s.inner.Get(ctx, key)
}

// Set writes through to the wrapped slot, then announces the write. A failed
// announcement is logged only: the value is stored and polling will find it.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.inner.Set(ctx, key, value); err != nil {
		return err
	}

	body, err := json.Marshal(Message{Key: key, Origin: s.Origin(), At: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = s.channel.PublishWithContext(
		pubCtx,
		s.exchange, // exchange
		"",         // routing key, ignored by fanout
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        body,
		},
	)
	if err != nil {
		s.logger.Warn("publish slot change", zap.String("key", key), zap.Error(err))
	}
	return nil
}

// Watch binds a private queue to the exchange and forwards announcements made
// by other handles.
func (s *Store) Watch(ctx context.Context) (<-chan kv.Event, error) {
	ch, err := s.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open consume channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", s.exchange, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	deliveries, err := ch.Consume(
		q.Name, // queue
		"",     // consumer
		true,   // auto-ack
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("start consuming: %w", err)
	}

	out := make(chan kv.Event, 16)
	go func() {
		defer close(out)
		defer ch.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				ev, ok := accept(d.Body, s.Origin())
				if !ok {
					continue
				}
				select {
				case out <- ev:
				default:
					s.logger.Debug("dropped slot event", zap.String("key", ev.Key))
				}
			}
		}
	}()
	return out, nil
}

// Close releases the broker connection and the wrapped slot.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.channel != nil {
		s.channel.Close()
	}
	if s.conn != nil {
		s.conn.Close()
	}
	return s.inner.Close()
}

// accept decodes an announcement and drops the ones this handle made itself.
func accept(body []byte, self string) (kv.Event, bool) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return kv.Event{}, false
	}
	if msg.Key == "" || msg.Origin == self {
		return kv.Event{}, false
	}
	return kv.Event{Key: msg.Key, Origin: msg.Origin, At: msg.At}, true
}
