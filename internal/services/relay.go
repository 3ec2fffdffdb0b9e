package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// Relay is the extension point for running more than one transport
// process. The in-memory fan-out table only covers connections held by
// this process; a relay carries published messages to the others.
type Relay interface {
	Publish(groupID string, payload []byte) error
	Subscribe(handler func(groupID string, payload []byte))
	Close()
}

type relayEnvelope struct {
	Origin  string          `json:"origin"`
	GroupID string          `json:"groupId"`
	Payload json.RawMessage `json:"payload"`
}

// AMQPRelay fans messages out across transport processes through a
// RabbitMQ fanout exchange. Each process consumes from its own
// exclusive queue; messages arriving from the relay are delivered to
// local connections only and never re-published or re-persisted.
type AMQPRelay struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	queue    string
	origin   string
}

// NewAMQPRelay connects to the broker and declares the fanout exchange
func NewAMQPRelay(url, exchange string) (*AMQPRelay, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	log.Info().Str("exchange", exchange).Msg("Connected to AMQP relay")
	return &AMQPRelay{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		queue:    q.Name,
		origin:   uuid.New().String(),
	}, nil
}

// Publish forwards a broadcast payload to the other transport processes
func (r *AMQPRelay) Publish(groupID string, payload []byte) error {
	body, err := json.Marshal(relayEnvelope{Origin: r.origin, GroupID: groupID, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal relay envelope: %w", err)
	}
	err = r.ch.PublishWithContext(context.Background(), r.exchange, "", false, false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish relay message: %w", err)
	}
	return nil
}

// Subscribe starts consuming relayed messages and hands each one to the
// handler. The fanout exchange delivers a process's own publishes back
// to it as well; those are filtered out by origin so local connections
// only ever see one copy.
func (r *AMQPRelay) Subscribe(handler func(groupID string, payload []byte)) {
	deliveries, err := r.ch.Consume(r.queue, "", true, true, false, false, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to start relay consumer")
		return
	}

	go func() {
		for d := range deliveries {
			var env relayEnvelope
			if err := json.Unmarshal(d.Body, &env); err != nil {
				log.Error().Err(err).Msg("Failed to decode relay envelope")
				continue
			}
			if env.Origin == r.origin {
				continue
			}
			handler(env.GroupID, env.Payload)
		}
	}()
}

// Close shuts down the broker connection
func (r *AMQPRelay) Close() {
	if r.ch != nil {
		r.ch.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}
	log.Info().Msg("AMQP relay connection closed")
}
