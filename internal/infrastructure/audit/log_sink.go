package audit

import (
	"context"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/DTBbuilds/smartduka-inventory/pkg/logger"
)

// LogSink escribe cada registro como evento estructurado de zerolog.
type LogSink struct {
	log *logger.Logger
}

// NewLogSink construye el sink.
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log.Named("audit")}
}

func (s *LogSink) Write(_ context.Context, entries []entity.AuditEntry) error {
	for _, e := range entries {
		s.log.Info().
			Str("shop_id", e.ShopID).
			Str("actor_id", e.ActorID).
			Str("action", e.Action).
			Str("resource", e.Resource).
			Str("resource_id", e.ResourceID).
			Interface("before", e.Before).
			Interface("after", e.After).
			Time("occurred_at", e.OccurredAt).
			Msg("audit")
	}
	return nil
}

func (s *LogSink) Close() error { return nil }
