// Package events publishes domain events about enrollments.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/irsalhamdi/course-marketplace/core/enrollment"
	"github.com/segmentio/kafka-go"
)

type Publisher interface {
	EnrollmentCreated(ctx context.Context, e enrollment.Enrollment) error
	Close() error
}

// EnrollmentCreated is the payload written for every new enrollment.
type EnrollmentCreated struct {
	Type         string    `json:"type"`
	EnrollmentID string    `json:"enrollmentId"`
	UserID       string    `json:"userId"`
	CourseID     string    `json:"courseId"`
	SessionID    string    `json:"sessionId"`
	EnrolledAt   time.Time `json:"enrolledAt"`
}

const TypeEnrollmentCreated = "enrollment.created"

func NewEnrollmentCreated(e enrollment.Enrollment) EnrollmentCreated {
	return EnrollmentCreated{
		Type:         TypeEnrollmentCreated,
		EnrollmentID: e.ID,
		UserID:       e.UserID,
		CourseID:     e.CourseID,
		SessionID:    e.SessionID,
		EnrolledAt:   e.EnrolledAt,
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka writes events keyed by user id so a user's events stay ordered.
type Kafka struct {
	w messageWriter
}

func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

func (k *Kafka) EnrollmentCreated(ctx context.Context, e enrollment.Enrollment) error {
	payload, err := json.Marshal(NewEnrollmentCreated(e))
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	err = k.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.UserID),
		Value: payload,
		Time:  e.EnrolledAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(TypeEnrollmentCreated)},
		},
	})
	if err != nil {
		return fmt.Errorf("writing enrollment[%s] event: %w", e.ID, err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.w.Close()
}

// Nop drops every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) EnrollmentCreated(context.Context, enrollment.Enrollment) error { return nil }

func (Nop) Close() error { return nil }
