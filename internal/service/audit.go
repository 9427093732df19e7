package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"trackerd/internal/models"
)

// recordAudit appends an audit row. Best-effort: a failed audit write is
// logged, never propagated, so it cannot fail the mutation it describes.
func recordAudit(ctx context.Context, db *gorm.DB, actorID *uuid.UUID, action, targetType string, targetID *uuid.UUID, meta map[string]any) {
	entry := models.AuditLog{
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
	}
	if targetID != nil {
		s := targetID.String()
		entry.TargetID = &s
	}
	if len(meta) > 0 {
		data, err := json.Marshal(meta)
		if err != nil {
			log.Warn().Err(err).Str("action", action).Msg("encode audit metadata")
		} else {
			entry.Metadata = data
		}
	}

	if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
		log.Warn().Err(err).Str("action", action).Msg("write audit log")
	}
}
