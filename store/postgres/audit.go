package postgres

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/jackc/pgx/v5/pgxpool"
)

const auditWriteTimeout = 5 * time.Second

// AuditSink writes audit events to the audit_logs table. Write failures are
// logged and dropped.
type AuditSink struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewAuditSink returns a sink writing through db. A nil logger uses slog.Default().
func NewAuditSink(db *pgxpool.Pool, logger *slog.Logger) *AuditSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditSink{db: db, logger: logger}
}

func (s *AuditSink) Emit(ctx context.Context, event goSession.AuditEvent) {
	ctx, cancel := context.WithTimeout(ctx, auditWriteTimeout)
	defer cancel()

	var metadata []byte
	if len(event.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(event.Metadata)
		if err != nil {
			s.logger.Warn("audit metadata not encodable", "event_type", event.EventType, "error", err)
			metadata = nil
		}
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO audit_logs (id, user_id, action, target, ip_address, user_agent,
			success, error_code, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`,
		event.ID,
		event.UserID,
		event.EventType,
		event.Target,
		event.IP,
		event.UserAgent,
		event.Success,
		event.Error,
		metadata,
		event.Timestamp,
	)
	if err != nil {
		s.logger.Warn("audit event not persisted", "event_type", event.EventType, "event_id", event.ID, "error", err)
	}
}
