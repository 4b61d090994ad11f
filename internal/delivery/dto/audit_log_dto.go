package dto

import (
	"time"

	"clinic-booking/internal/domain/entity"

	"github.com/google/uuid"
)

// Response DTOs

type AuditLogResponse struct {
	ID         int64       `json:"id"`
	ProviderID *uuid.UUID  `json:"provider_id,omitempty"`
	ActorType  string      `json:"actor_type"`
	Action     string      `json:"action"`
	Metadata   entity.JSON `json:"metadata"`
	CreatedAt  time.Time   `json:"created_at"`
}

type AuditLogListResponse struct {
	Logs  []AuditLogResponse `json:"logs"`
	Total int64              `json:"total"`
}
