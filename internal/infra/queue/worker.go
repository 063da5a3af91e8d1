package queue

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/beatvault/beatvault-orders/internal/infra/http/middleware"
)

// Dispatcher is the batch email dispatcher the worker drives. Same code path
// as the HTTP trigger; the worker just makes it prompt.
type Dispatcher interface {
	Dispatch(ctx context.Context, limit int) (claimed, sent, failed int, err error)
}

type Worker struct {
	Channel    *amqp.Channel
	Dispatcher Dispatcher
	BatchLimit int
	Logger     *zap.Logger
}

func NewWorker(ch *amqp.Channel, dispatcher Dispatcher, batchLimit int, logger *zap.Logger) *Worker {
	return &Worker{
		Channel:    ch,
		Dispatcher: dispatcher,
		BatchLimit: batchLimit,
		Logger:     logger,
	}
}

func (w *Worker) Start(queueName string) {
	msgs, err := w.Channel.Consume(
		queueName,
		"",    // consumer
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		w.Logger.Fatal("register RabbitMQ consumer", zap.Error(err))
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var nudge DispatchNudge
			if err := json.Unmarshal(d.Body, &nudge); err != nil {
				w.Logger.Warn("malformed dispatch nudge, rejecting", zap.Error(err))
				// Poison message. No requeue, off to the DLQ.
				d.Nack(false, false)
				continue
			}

			claimed, sent, failed, err := w.Dispatcher.Dispatch(context.Background(), w.BatchLimit)
			if err != nil {
				w.Logger.Error("dispatch batch failed", zap.Error(err))
				d.Nack(false, false)
				continue
			}

			middleware.RecordEmailsDispatched(sent, failed)
			w.Logger.Info("dispatch batch done",
				zap.String("origin", nudge.Origin),
				zap.Int("claimed", claimed),
				zap.Int("sent", sent),
				zap.Int("failed", failed),
			)
			d.Ack(false)
		}
	}()

	w.Logger.Info("email dispatch worker waiting", zap.String("queue", queueName))
	<-forever
}
