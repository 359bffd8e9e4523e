package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Astemirdum/library-lending/library/internal/model"
	"github.com/Astemirdum/library-lending/library/internal/notify"
	"github.com/Astemirdum/library-lending/pkg/circuit_breaker"
)

func checkedOutEvent() model.Event {
	due := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	return model.Event{
		ID:         "e1",
		Type:       model.EventCheckedOut,
		BookID:     "001",
		Title:      "1984",
		PatronID:   "p1",
		DueDate:    &due,
		OccurredAt: due.Add(-14 * 24 * time.Hour),
	}
}

func TestMessage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		event  model.Event
		want   string
		wantOK bool
	}{
		{
			name:   "checked out reminds due date",
			event:  checkedOutEvent(),
			want:   "Reminder: The book '1984' is due on 2024-01-15. Please return it on time.",
			wantOK: true,
		},
		{
			name:   "reservation fulfilled",
			event:  model.Event{Type: model.EventReservationFulfilled, Title: "1984"},
			want:   "Notification: The book '1984' you reserved is now available for checkout.",
			wantOK: true,
		},
		{
			name:   "checked in",
			event:  model.Event{Type: model.EventCheckedIn, Title: "1984"},
			want:   "Receipt: The book '1984' has been checked in. Thank you.",
			wantOK: true,
		},
		{
			name:  "checked out without due date",
			event: model.Event{Type: model.EventCheckedOut, Title: "1984"},
		},
		{
			name:  "unknown type",
			event: model.Event{Type: "lost", Title: "1984"},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := notify.Message(tt.event)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	t.Parallel()
	e := checkedOutEvent()
	e.Seq = 7
	data, err := notify.Encode(e)
	require.NoError(t, err)
	require.Contains(t, string(data), `"type":"checked_out"`)
	require.Contains(t, string(data), `"seq":7`)

	got, err := notify.Decode(data)
	require.NoError(t, err)
	require.Equal(t, e.BookID, got.BookID)
	require.Equal(t, uint64(7), got.Seq)
	require.True(t, e.DueDate.Equal(*got.DueDate))

	_, err = notify.Decode([]byte("{"))
	require.Error(t, err)
}

func TestPublisher_Publish(t *testing.T) {
	t.Parallel()
	producer := mocks.NewSyncProducer(t, sarama.NewConfig())
	defer func() { require.NoError(t, producer.Close()) }()

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		e, err := notify.Decode(val)
		if err != nil {
			return err
		}
		if e.BookID != "001" {
			return errors.New("unexpected book id " + e.BookID)
		}
		return nil
	})

	p := notify.NewPublisher(producer, "lending-events", circuit_breaker.New(4, time.Minute, 0.5, 1), zap.NewNop())
	require.NoError(t, p.Publish(checkedOutEvent()))
}

func TestPublisher_BreakerOpensOnBrokerFailures(t *testing.T) {
	t.Parallel()
	producer := mocks.NewSyncProducer(t, sarama.NewConfig())
	defer func() { require.NoError(t, producer.Close()) }()

	brokerDown := errors.New("broker down")
	producer.ExpectSendMessageAndFail(brokerDown)
	producer.ExpectSendMessageAndFail(brokerDown)

	core, logs := observer.New(zap.ErrorLevel)
	p := notify.NewPublisher(producer, "lending-events", circuit_breaker.New(2, time.Minute, 0.5, 1), zap.New(core))

	require.ErrorIs(t, p.Publish(checkedOutEvent()), brokerDown)
	// breaker is open now; the producer is not called again
	require.ErrorIs(t, p.Publish(checkedOutEvent()), circuit_breaker.ErrOpenCB)

	p.Emit(checkedOutEvent())
	require.Equal(t, 1, logs.FilterMessage("publish event").Len())

	// drain the second expectation so Close reports no leftovers
	_, _, err := producer.SendMessage(&sarama.ProducerMessage{Topic: "lending-events", Value: sarama.StringEncoder("x")})
	require.ErrorIs(t, err, brokerDown)
}

func TestDispatcher_Notify(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zap.InfoLevel)
	d := notify.NewDispatcher(zap.New(core))

	require.NoError(t, d.Notify(context.Background(), checkedOutEvent()))
	require.Error(t, d.Notify(context.Background(), model.Event{Type: "lost"}))

	entries := logs.FilterMessage("notify patron").All()
	require.Len(t, entries, 1)
	require.Equal(t, "Reminder: The book '1984' is due on 2024-01-15. Please return it on time.", entries[0].ContextMap()["text"])
}

func TestLogSink_Emit(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zap.InfoLevel)
	s := notify.NewLogSink(zap.New(core))

	s.Emit(checkedOutEvent())
	require.Equal(t, 1, logs.FilterMessage("lending event").Len())
	require.Equal(t, 1, logs.FilterMessage("notification").Len())
}
