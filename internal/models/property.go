package models

import (
	"time"

	"gorm.io/gorm"
)

// Property is a rental unit managed by the system
type Property struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name     string  `gorm:"type:varchar(100)" json:"name"`
	Location string  `gorm:"type:varchar(255)" json:"location"`
	UnitType string  `gorm:"type:varchar(50)" json:"unit_type"` // e.g., "bedsitter", "one_bedroom"
	Rent     int64   `json:"rent"`
	Occupied bool    `gorm:"default:false" json:"occupied"`

	// Relationships
	Tenants    []Tenant    `gorm:"foreignKey:PropertyID" json:"tenants,omitempty"`
	Complaints []Complaint `gorm:"foreignKey:PropertyID" json:"complaints,omitempty"`
}
