package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shashank-materialplus/order-api/internal/usecase"
)

const (
	exchangeName = "order.reconcile"
	routingKey   = "stock.decrement.failed"
	queueName    = "stock.reconcile.q"
)

// RabbitReconcilePublisher hands failed stock decrements to the external
// reconciliation worker. Durable end to end: the message must survive a
// broker restart, it is the only record besides the log line.
type RabbitReconcilePublisher struct {
	ch *amqp.Channel
}

// NewRabbitReconcilePublisher declares the exchange, queue and binding
// once at startup.
func NewRabbitReconcilePublisher(ch *amqp.Channel) (*RabbitReconcilePublisher, error) {
	if err := ch.ExchangeDeclare(
		exchangeName,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, routingKey, exchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("queue bind: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("enable confirm mode: %w", err)
	}

	return &RabbitReconcilePublisher{ch: ch}, nil
}

func (p *RabbitReconcilePublisher) PublishStockReconcile(ctx context.Context, msg usecase.StockReconcileMsg) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}

	if err := p.ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

var _ usecase.ReconcilePublisher = (*RabbitReconcilePublisher)(nil)
