package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestKafkaPublisherKeysByResource(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaPublisher{w: w}
	exp := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(), Event{
		Type:      TypeLeaseActivated,
		TxRef:     "tx_ref_success",
		Resource:  "room:HTL-1:101",
		ExpiresAt: &exp,
		Amount:    decimal.RequireFromString("7500"),
		At:        exp.Add(-72 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("wrote %d messages, want 1", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "room:HTL-1:101" {
		t.Fatalf("key = %q", msg.Key)
	}
	var got Event
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got.Type != TypeLeaseActivated || !got.Amount.Equal(decimal.NewFromInt(7500)) {
		t.Fatalf("payload = %+v", got)
	}
}

func TestKafkaPublisherWrapsWriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := &KafkaPublisher{w: &recordingWriter{err: boom}}
	err := p.Publish(context.Background(), Event{Type: TypeLeaseRevoked, TxRef: "tx-1"})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped broker error", err)
	}
}
