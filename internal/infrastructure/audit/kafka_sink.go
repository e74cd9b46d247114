package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
)

// MessageWriter subconjunto de *kafka.Writer usado por el sink.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publica los registros en un tópico, con la tienda como clave de partición.
type KafkaSink struct {
	w       MessageWriter
	timeout time.Duration
}

// NewKafkaSink crea el writer hacia brokers/topic.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return NewKafkaSinkWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	})
}

// NewKafkaSinkWithWriter permite inyectar el writer (tests).
func NewKafkaSinkWithWriter(w MessageWriter) *KafkaSink {
	return &KafkaSink{w: w, timeout: 10 * time.Second}
}

func (s *KafkaSink) Write(ctx context.Context, entries []entity.AuditEntry) error {
	msgs := make([]kafka.Message, 0, len(entries))
	for _, e := range entries {
		value, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal audit entry: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.ShopID),
			Value: value,
			Time:  e.OccurredAt,
			Headers: []kafka.Header{
				{Key: "action", Value: []byte(e.Action)},
			},
		})
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish audit: %w", err)
	}
	return nil
}

func (s *KafkaSink) Close() error { return s.w.Close() }
