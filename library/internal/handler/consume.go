package handler

import (
	"context"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-lending/library/internal/model"
	"github.com/Astemirdum/library-lending/library/internal/notify"
)

type notifyFunc func(ctx context.Context, e model.Event) error

// Consumer reads lending events back from Kafka and hands them to the
// notification dispatcher.
type Consumer struct {
	notify notifyFunc
	log    *zap.Logger
	ready  chan bool
}

func NewConsumer(notify notifyFunc, log *zap.Logger) *Consumer {
	return &Consumer{
		notify: notify,
		log:    log.Named("consumer"),
		ready:  make(chan bool),
	}
}

// Ready is closed once the first session is set up.
func (consumer *Consumer) Ready() <-chan bool {
	return consumer.ready
}

func (consumer *Consumer) Setup(sarama.ConsumerGroupSession) error {
	select {
	case <-consumer.ready:
	default:
		close(consumer.ready)
	}
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited.
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
			e, err := notify.Decode(message.Value)
			if err != nil {
				consumer.log.Error("decode", zap.Error(err))
				session.MarkMessage(message, "")
				continue
			}
			if err := consumer.notify(session.Context(), e); err != nil {
				consumer.log.Warn("notify", zap.String("type", string(e.Type)), zap.Error(err))
			}

			consumer.log.Debug("message claimed",
				zap.String("key", string(message.Key)),
				zap.Time("timestamp", message.Timestamp),
				zap.String("topic", message.Topic))
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
