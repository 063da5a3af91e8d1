package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DispatchNudge tells the worker that new email jobs are waiting. The durable
// queue is the database; the nudge only makes dispatch prompt instead of
// waiting for the next scheduled tick.
type DispatchNudge struct {
	JobID     string `json:"job_id"`
	Template  string `json:"template"`
	Recipient string `json:"recipient"`
	Origin    string `json:"origin"`
}

type DispatchNotifierInterface interface {
	PublishDispatchNudge(ctx context.Context, nudge DispatchNudge) error
}

type RabbitMQProducer struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewProducer(conn *amqp.Connection, ch *amqp.Channel) *RabbitMQProducer {
	return &RabbitMQProducer{Conn: conn, Ch: ch}
}

func (p *RabbitMQProducer) PublishDispatchNudge(ctx context.Context, nudge DispatchNudge) error {
	body, err := json.Marshal(nudge)
	if err != nil {
		return fmt.Errorf("marshal dispatch nudge: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("publish dispatch nudge: %w", err)
	}
	return nil
}
