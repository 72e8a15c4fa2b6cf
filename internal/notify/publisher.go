// Package notify publishes store changes to a RabbitMQ topic exchange so
// other services can follow the property collection.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/mesh-intelligence/propsync/internal/logging"
	"github.com/mesh-intelligence/propsync/internal/store"
	"github.com/mesh-intelligence/propsync/pkg/types"
)

const (
	routingPrefix  = "property."
	publishTimeout = 10 * time.Second
	queueSize      = 64
)

// Event is the message body published for every change.
type Event struct {
	ID         string           `json:"id"`
	Op         store.Op         `json:"op"`
	IDs        []string         `json:"ids,omitempty"`
	Total      int              `json:"total"`
	Properties []types.Property `json:"properties,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Source delivers store changes. *store.Store implements it.
type Source interface {
	Subscribe(fn func(store.Change)) (cancel func())
}

// Publisher sends change events to an exchange.
type Publisher struct {
	ch       channel
	conn     *amqp.Connection
	exchange string
	log      logging.Logger
	now      func() time.Time
}

// Dial connects to url, declares a durable topic exchange and returns a
// publisher for it.
func Dial(url, exchange string, log logging.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dialing rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring exchange %q: %w", exchange, err)
	}
	p := NewPublisher(ch, exchange, log)
	p.conn = conn
	return p, nil
}

// NewPublisher wraps an open channel.
func NewPublisher(ch channel, exchange string, log logging.Logger) *Publisher {
	if log == nil {
		log = logging.Nop()
	}
	return &Publisher{
		ch:       ch,
		exchange: exchange,
		log:      log.WithFields(logging.Fields{"component": "notify", "exchange": exchange}),
		now:      time.Now,
	}
}

// NewEvent builds the event for c. Only the properties named in c.IDs are
// included; a load carries the total alone.
func NewEvent(c store.Change, at time.Time) Event {
	ev := Event{
		ID:         uuid.NewString(),
		Op:         c.Op,
		IDs:        c.IDs,
		Total:      len(c.Snapshot),
		OccurredAt: at.UTC(),
	}
	if len(c.IDs) == 0 {
		return ev
	}
	want := make(map[string]bool, len(c.IDs))
	for _, id := range c.IDs {
		want[id] = true
	}
	for _, p := range c.Snapshot {
		if want[p.ID] {
			ev.Properties = append(ev.Properties, p)
		}
	}
	return ev
}

// Publish sends the event for c with routing key property.<op>.
func (p *Publisher) Publish(ctx context.Context, c store.Change) error {
	ev := NewEvent(c, p.now())
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    ev.OccurredAt,
		Body:         body,
		Headers:      amqp.Table{"x-op": string(c.Op)},
	}
	key := routingPrefix + string(c.Op)
	if err := p.ch.PublishWithContext(ctx, p.exchange, key, false, false, msg); err != nil {
		return fmt.Errorf("publishing %s: %w", key, err)
	}
	p.log.Debug("event published", logging.Fields{"routing_key": key, "event_id": ev.ID})
	return nil
}

// Follow subscribes to src and publishes every change from a background
// goroutine. Changes that arrive while the queue is full are dropped with a
// warning. The returned stop function unsubscribes and waits for queued
// events to be sent.
func (p *Publisher) Follow(ctx context.Context, src Source) (stop func()) {
	queue := make(chan store.Change, queueSize)
	var (
		mu     sync.Mutex
		closed bool
		wg     sync.WaitGroup
	)

	cancel := src.Subscribe(func(c store.Change) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case queue <- c:
		default:
			p.log.Warn("change feed full, dropping event", logging.Fields{"op": string(c.Op)})
		}
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for c := range queue {
			pctx, done := context.WithTimeout(ctx, publishTimeout)
			if err := p.Publish(pctx, c); err != nil {
				p.log.Error("publish failed", err, logging.Fields{"op": string(c.Op)})
			}
			done()
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			mu.Lock()
			closed = true
			close(queue)
			mu.Unlock()
			wg.Wait()
		})
	}
}

// Close closes the channel and, when opened by Dial, the connection.
func (p *Publisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
