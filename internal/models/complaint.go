package models

import (
	"time"

	"gorm.io/gorm"
)

// ComplaintStatus represents the handling state of a complaint
type ComplaintStatus string

const (
	ComplaintStatusOpen     ComplaintStatus = "open"
	ComplaintStatusResolved ComplaintStatus = "resolved"
)

// Complaint is a maintenance or service issue raised by a tenant
type Complaint struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	TenantID    uint            `gorm:"index" json:"tenant_id"`
	PropertyID  uint            `gorm:"index" json:"property_id"`
	Subject     string          `gorm:"type:varchar(255)" json:"subject"`
	Description string          `gorm:"type:text" json:"description"`
	Status      ComplaintStatus `gorm:"type:varchar(20);default:'open'" json:"status"`

	// Relationships
	Tenant   Tenant   `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	Property Property `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
}
