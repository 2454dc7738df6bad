package models

import (
	"time"

	"gorm.io/gorm"
)

// Tenant is a person renting a property
type Tenant struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name       string     `gorm:"type:varchar(100)" json:"name"`
	Email      string     `gorm:"type:varchar(255);index" json:"email"`
	Phone      string     `gorm:"type:varchar(12)" json:"phone"`
	PropertyID uint       `gorm:"index" json:"property_id"`
	MoveInDate *time.Time `json:"move_in_date"`

	// Relationships
	Property Property  `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
	Payments []Payment `gorm:"foreignKey:TenantID" json:"payments,omitempty"`
}
