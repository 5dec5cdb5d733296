package notify

import (
	"context"
	"encoding/json"

	"github.com/IvanGLS/library-service-project/pkg/kafka"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

type sender func(ctx context.Context, text string) error

// Consumer drains notification events and hands them to the sender. Failed
// deliveries are logged and left unmarked so the group retries them.
type Consumer struct {
	send  sender
	log   *zap.Logger
	ready chan bool
}

func NewConsumer(send sender, log *zap.Logger) *Consumer {
	return &Consumer{
		send:  send,
		log:   log.Named("consumer"),
		ready: make(chan bool),
	}
}

func (consumer *Consumer) Setup(sarama.ConsumerGroupSession) error {
	// Mark the consumer as ready
	close(consumer.ready)
	return nil
}

func (consumer *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (consumer *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				consumer.log.Warn("message channel was closed")
				return nil
			}
			var event kafka.NotificationEvent
			if err := json.Unmarshal(message.Value, &event); err != nil {
				consumer.log.Error("", zap.Error(err))
				session.MarkMessage(message, "")
				continue
			}

			if err := consumer.send(context.Background(), event.Text); err != nil {
				consumer.log.Error("consumer.send", zap.Error(err))
				continue
			}

			consumer.log.Debug("Message claimed:", zap.String("value", string(message.Value)), zap.Time("timestamp", message.Timestamp), zap.String("topic", message.Topic))
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
