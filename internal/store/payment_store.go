package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"kodisha_app/internal/apperrors"
	"kodisha_app/internal/models"
)

// PaymentStore is the persistence contract the payment lifecycle depends on.
// The conditional update is the primitive that makes concurrent resolution
// race-safe: a transition only applies while the record still holds the
// expected status.
type PaymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id uint) (*models.Payment, error)
	GetByReference(ctx context.Context, reference string) (*models.Payment, error)
	// GetByCheckoutRequestID returns (nil, nil) when no record matches; the
	// gateway may notify about requests this system never recorded.
	GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*models.Payment, error)
	// UpdateIfStatus applies updates only while the record's status equals
	// current. Returns false when the guard did not match (no rows updated).
	UpdateIfStatus(ctx context.Context, id uint, current models.PaymentStatus, updates map[string]interface{}) (bool, error)
	// InTx runs fn against a transactional view of the store; fn returning an
	// error rolls back everything it did.
	InTx(ctx context.Context, fn func(tx PaymentStore) error) error
}

// GormPaymentStore implements PaymentStore on top of a gorm connection
type GormPaymentStore struct {
	db *gorm.DB
}

func NewPaymentStore(db *gorm.DB) *GormPaymentStore {
	return &GormPaymentStore{db: db}
}

func (s *GormPaymentStore) Create(ctx context.Context, payment *models.Payment) error {
	if err := s.db.WithContext(ctx).Create(payment).Error; err != nil {
		return apperrors.Wrap(apperrors.KindStore, "failed to create payment", err)
	}
	return nil
}

func (s *GormPaymentStore) GetByID(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "payment not found")
		}
		return nil, apperrors.Wrap(apperrors.KindStore, "failed to fetch payment", err)
	}
	return &payment, nil
}

func (s *GormPaymentStore) GetByReference(ctx context.Context, reference string) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).Where("reference = ?", reference).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "payment not found")
		}
		return nil, apperrors.Wrap(apperrors.KindStore, "failed to fetch payment", err)
	}
	return &payment, nil
}

func (s *GormPaymentStore) GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).Where("checkout_request_id = ?", checkoutRequestID).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.KindStore, "failed to fetch payment", err)
	}
	return &payment, nil
}

func (s *GormPaymentStore) UpdateIfStatus(ctx context.Context, id uint, current models.PaymentStatus, updates map[string]interface{}) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, current).
		Updates(updates)
	if res.Error != nil {
		return false, apperrors.Wrap(apperrors.KindStore, "failed to update payment", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormPaymentStore) InTx(ctx context.Context, fn func(tx PaymentStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormPaymentStore{db: tx})
	})
}
