package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// CallbackLog stores every raw gateway notification before it is resolved,
// so failed or duplicate deliveries can be audited later
type CallbackLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Payload   json.RawMessage `gorm:"type:jsonb" json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}
