package kafka

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"

	"github.com/shashank-materialplus/order-api/internal/usecase"
)

// NewSyncProducer builds a synchronous producer with full acks.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 3
	return sarama.NewSyncProducer(brokers, cfg)
}

// EventProducer publishes order lifecycle events, keyed by order id so
// consumers see each order's events in order.
type EventProducer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewEventProducer(producer sarama.SyncProducer, topic string) *EventProducer {
	return &EventProducer{producer: producer, topic: topic}
}

type event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func (p *EventProducer) publish(key string, ev event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(body),
	})
	return err
}

func (p *EventProducer) PublishOrderCreated(_ context.Context, msg usecase.OrderCreatedMsg) error {
	return p.publish(msg.OrderID, event{Type: "OrderCreatedV1", Data: msg})
}

func (p *EventProducer) PublishStatusChanged(_ context.Context, msg usecase.StatusChangedMsg) error {
	return p.publish(msg.OrderID, event{Type: "OrderStatusChangedV1", Data: msg})
}

var _ usecase.EventPublisher = (*EventProducer)(nil)
