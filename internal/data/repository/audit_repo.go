package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"trip-booking/internal/data/entity"
	"trip-booking/pkg/database"

	"go.uber.org/zap"
)

// AuditLogRepository is a write-only sink; the core never reads audit rows
// back.
type AuditLogRepository interface {
	Create(ctx context.Context, log *entity.AuditLog) error
}

type auditLogRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewAuditLogRepository(db database.PgxIface, log *zap.Logger) AuditLogRepository {
	return &auditLogRepository{
		db:  db,
		log: log.With(zap.String("repository", "audit")),
	}
}

func (r *auditLogRepository) q(ctx context.Context) database.Querier {
	if tx, ok := database.TxFromContext(ctx); ok {
		return tx
	}
	return r.db
}

func (r *auditLogRepository) Create(ctx context.Context, entry *entity.AuditLog) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	query := `
		INSERT INTO audit_logs (id, actor_id, action, target_type, target_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.q(ctx).Exec(ctx, query,
		entry.ID,
		entry.ActorID,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		metadata,
		entry.CreatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create audit log",
			zap.Error(err),
			zap.String("action", entry.Action),
			zap.String("target_id", entry.TargetID),
		)
		return fmt.Errorf("create audit log %s: %w", entry.Action, err)
	}

	return nil
}
