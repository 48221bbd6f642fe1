package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/irsalhamdi/course-marketplace/core/enrollment"
	"github.com/segmentio/kafka-go"
)

type recordingWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (r *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.msgs = append(r.msgs, msgs...)
	return nil
}

func (r *recordingWriter) Close() error {
	r.closed = true
	return nil
}

func TestKafkaEnrollmentCreated(t *testing.T) {
	rw := &recordingWriter{}
	k := &Kafka{w: rw}

	e := enrollment.Enrollment{
		ID:         "e1",
		UserID:     "u1",
		CourseID:   "ai-fundamentals",
		SessionID:  "cs_1",
		EnrolledAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := k.EnrollmentCreated(context.Background(), e); err != nil {
		t.Fatal(err)
	}

	if len(rw.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(rw.msgs))
	}
	msg := rw.msgs[0]
	if string(msg.Key) != "u1" {
		t.Fatalf("expected user id key, got %q", msg.Key)
	}

	var got EnrollmentCreated
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(NewEnrollmentCreated(e), got); diff != "" {
		t.Fatalf("unexpected payload (-want +got):\n%s", diff)
	}

	if err := k.Close(); err != nil || !rw.closed {
		t.Fatalf("expected writer to be closed, err=%v", err)
	}
}
