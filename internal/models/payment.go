package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// PaymentStatus represents the lifecycle state of a payment attempt
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Terminal reports whether the status is a final state. A terminal payment is
// never mutated again by the lifecycle coordinator.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed || s == PaymentStatusRefunded
}

// Payment records a single STK-push payment attempt from initiation through
// terminal resolution
type Payment struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Reference  string `gorm:"type:varchar(36);uniqueIndex" json:"reference"`
	TenantID   uint   `gorm:"index" json:"tenant_id"`
	PropertyID uint   `gorm:"index" json:"property_id"`

	Amount int64  `json:"amount"`
	Phone  string `gorm:"type:varchar(12)" json:"-"`

	// CheckoutRequestID is the gateway-issued correlation id. It stays NULL
	// until the push initiation succeeds, and never changes once set.
	CheckoutRequestID *string `gorm:"type:varchar(100);uniqueIndex" json:"checkout_request_id"`
	MerchantRequestID string  `gorm:"type:varchar(100)" json:"merchant_request_id"`

	Status PaymentStatus `gorm:"type:varchar(20);index" json:"status"`
	Method string        `gorm:"type:varchar(50)" json:"method"`

	Notes json.RawMessage `gorm:"type:jsonb" json:"notes"`

	// Relationships
	Tenant   Tenant   `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	Property Property `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
}
