package notify

import (
	"context"
	"encoding/json"

	"github.com/IvanGLS/library-service-project/pkg/kafka"

	"github.com/IBM/sarama"
)

// Enqueuer publishes notification events to the notifications topic. Delivery
// to the bot happens in the consumer; publishing is the only thing business
// operations wait for, and even that is best-effort at the call sites.
type Enqueuer struct {
	producer sarama.SyncProducer
}

func NewEnqueuer(producer sarama.SyncProducer) *Enqueuer {
	return &Enqueuer{producer: producer}
}

func (e *Enqueuer) Notify(_ context.Context, text string) error {
	data, err := json.Marshal(kafka.NotificationEvent{Text: text})
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{Topic: kafka.NotificationsTopic, Value: sarama.StringEncoder(data)}
	if _, _, err = e.producer.SendMessage(msg); err != nil {
		return err
	}
	return nil
}
