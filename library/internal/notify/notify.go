// Package notify turns lending events into patron notifications and
// ships the events to Kafka.
package notify

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-lending/library/internal/model"
	"github.com/Astemirdum/library-lending/pkg/circuit_breaker"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const dateLayout = "2006-01-02"

func DueDateReminder(title string, due string) string {
	return fmt.Sprintf("Reminder: The book '%s' is due on %s. Please return it on time.", title, due)
}

func ReservationAvailable(title string) string {
	return fmt.Sprintf("Notification: The book '%s' you reserved is now available for checkout.", title)
}

func Returned(title string) string {
	return fmt.Sprintf("Receipt: The book '%s' has been checked in. Thank you.", title)
}

// Message renders the patron-facing text for the event.
func Message(e model.Event) (string, bool) {
	switch e.Type {
	case model.EventCheckedOut:
		if e.DueDate == nil {
			return "", false
		}
		return DueDateReminder(e.Title, e.DueDate.Format(dateLayout)), true
	case model.EventReservationFulfilled:
		return ReservationAvailable(e.Title), true
	case model.EventCheckedIn:
		return Returned(e.Title), true
	default:
		return "", false
	}
}

func Encode(e model.Event) ([]byte, error) {
	return json.Marshal(e)
}

func Decode(data []byte) (model.Event, error) {
	var e model.Event
	if err := json.Unmarshal(data, &e); err != nil {
		return model.Event{}, errors.Wrap(err, "decode event")
	}
	return e, nil
}

// Publisher sends events to a Kafka topic keyed by book id. Failures are
// logged and never reach the ledger; the breaker stops hammering a dead
// broker.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	cb       circuit_breaker.CircuitBreaker
	log      *zap.Logger
}

func NewPublisher(producer sarama.SyncProducer, topic string, cb circuit_breaker.CircuitBreaker, log *zap.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		topic:    topic,
		cb:       cb,
		log:      log.Named("publisher"),
	}
}

func (p *Publisher) Publish(e model.Event) error {
	data, err := Encode(e)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(e.BookID),
		Value: sarama.ByteEncoder(data),
	}
	return p.cb.Call(func() error {
		_, _, err := p.producer.SendMessage(msg)
		return err
	})
}

func (p *Publisher) Emit(e model.Event) {
	if err := p.Publish(e); err != nil {
		p.log.Error("publish event",
			zap.String("type", string(e.Type)),
			zap.String("bookID", e.BookID),
			zap.Error(err))
	}
}

// LogSink records events in the log; used when Kafka is not configured.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log.Named("events")}
}

func (s *LogSink) Emit(e model.Event) {
	s.log.Info("lending event",
		zap.String("type", string(e.Type)),
		zap.String("bookID", e.BookID),
		zap.String("patronID", e.PatronID))
	if text, ok := Message(e); ok {
		s.log.Info("notification", zap.String("patronID", e.PatronID), zap.String("text", text))
	}
}

// Dispatcher is the consumer side: it renders the notification text for
// each delivered event. Delivery itself is a log line.
type Dispatcher struct {
	log *zap.Logger
}

func NewDispatcher(log *zap.Logger) *Dispatcher {
	return &Dispatcher{log: log.Named("notification")}
}

func (d *Dispatcher) Notify(_ context.Context, e model.Event) error {
	text, ok := Message(e)
	if !ok {
		return errors.Errorf("no notification for event type %q", e.Type)
	}
	d.log.Info("notify patron", zap.String("patronID", e.PatronID), zap.String("text", text))
	return nil
}
