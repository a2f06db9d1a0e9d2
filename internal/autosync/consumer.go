package autosync

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	exchange  = "events.watched"
	queueName = "autosync"

	// prefetchCount bounds in-flight deliveries. The work is HTTP-bound, so
	// a small window keeps the consumer busy without hammering trackers.
	prefetchCount = 20
)

// Service forwards one watch-status update to a tracker. Services declare
// themselves enabled based on their own configuration.
type Service interface {
	Name() string
	Enabled() bool
	Update(ctx context.Context, msg *WatchStatusMessage) error
}

type Consumer struct {
	conn     *amqp.Connection
	services []Service
}

func NewConsumer(url string, services []Service) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("autosync: connect broker: %w", err)
	}
	return &Consumer{conn: conn, services: services}, nil
}

func (c *Consumer) Close() error {
	return c.conn.Close()
}

// Run consumes until ctx is done or the channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("autosync: declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("autosync: declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "#", exchange, false, nil); err != nil {
		return fmt.Errorf("autosync: bind queue: %w", err)
	}
	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		return err
	}

	tag := "autosync-" + uuid.NewString()
	deliveries, err := ch.Consume(q.Name, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("autosync: consume: %w", err)
	}

	var enabled []string
	for _, s := range c.services {
		if s.Enabled() {
			enabled = append(enabled, s.Name())
		}
	}
	log.Printf("[autosync] consuming as %s, services: %v", tag, enabled)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("autosync: delivery channel closed")
			}
			go c.handle(ctx, d.Body, &d)
		}
	}
}

// Acknowledger is the delivery settlement surface, satisfied by
// amqp.Delivery.
type Acknowledger interface {
	Ack(multiple bool) error
	Reject(requeue bool) error
}

// handle settles the delivery: ack after a clean dispatch, reject without
// requeue on any failure so a poison message cannot loop.
func (c *Consumer) handle(ctx context.Context, body []byte, d Acknowledger) {
	if err := c.dispatch(ctx, body); err != nil {
		log.Printf("[autosync] %v", err)
		if err := d.Reject(false); err != nil {
			log.Printf("[autosync] reject: %v", err)
		}
		return
	}
	if err := d.Ack(false); err != nil {
		log.Printf("[autosync] ack: %v", err)
	}
}

func (c *Consumer) dispatch(ctx context.Context, body []byte) error {
	var msg message
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	if msg.Type != "WatchStatus" {
		return fmt.Errorf("unexpected message type %q", msg.Type)
	}

	for _, s := range c.services {
		if !s.Enabled() {
			continue
		}
		if err := s.Update(ctx, &msg.Value); err != nil {
			return fmt.Errorf("%s: %w", s.Name(), err)
		}
	}
	return nil
}
