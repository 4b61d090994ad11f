package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditLog records a schedule or appointment mutation. ProviderID is the
// owning provider; ActorType tells whether the provider or a patient acted.
type AuditLog struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProviderID *uuid.UUID `gorm:"type:uuid;index" json:"provider_id,omitempty"`
	ActorType  string     `gorm:"type:varchar(20);not null" json:"actor_type"`
	Action     string     `gorm:"type:varchar(100);not null;index" json:"action"`
	Metadata   JSON       `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// JSON type for GORM JSONB support
type JSON map[string]interface{}

// Value returns json value, implement driver.Valuer interface
func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan scan value into Jsonb, implements sql.Scanner interface
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to unmarshal JSONB value: %v", value)
	}

	result := map[string]interface{}{}
	err := json.Unmarshal(bytes, &result)
	*j = JSON(result)
	return err
}

// Audit actors
const (
	AuditActorProvider = "provider"
	AuditActorPatient  = "patient"
	AuditActorSystem   = "system"
)

// Common audit actions
const (
	AuditActionProviderRegister       = "provider.register"
	AuditActionProviderLogin          = "provider.login"
	AuditActionProviderLogout         = "provider.logout"
	AuditActionAppointmentCreate      = "appointment.create"
	AuditActionAppointmentCancel      = "appointment.cancel"
	AuditActionScheduleDayUpdate      = "schedule.day_update"
	AuditActionScheduleRangeCreate    = "schedule.range_create"
	AuditActionScheduleRangeDelete    = "schedule.range_delete"
	AuditActionUnavailableDayCreate   = "unavailability.day_create"
	AuditActionUnavailableDayDelete   = "unavailability.day_delete"
	AuditActionTimeFrameCreate        = "unavailability.frame_create"
	AuditActionTimeFrameDelete        = "unavailability.frame_delete"
	AuditActionHealthInsuranceReplace = "catalog.health_insurance_replace"
)
