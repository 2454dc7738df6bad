package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"

	"kodisha_app/internal/apperrors"
	"kodisha_app/internal/models"
	"kodisha_app/internal/store"
)

// ResolutionOutcome describes what a resolve attempt did to the payment record
type ResolutionOutcome string

const (
	OutcomeCompleted       ResolutionOutcome = "completed"
	OutcomeFailed          ResolutionOutcome = "failed"
	OutcomeAlreadyResolved ResolutionOutcome = "already_resolved"
	OutcomeUnknown         ResolutionOutcome = "unknown"
)

// PaymentService owns a payment attempt from creation through terminal
// resolution. It is the only writer of terminal state; the transition is a
// conditional update guarded on the current status, which makes concurrent
// poll- and callback-triggered resolution safe without explicit locking.
type PaymentService struct {
	store      store.PaymentStore
	gateway    Gateway
	reconciler *Reconciler
}

func NewPaymentService(store store.PaymentStore, gateway Gateway) *PaymentService {
	return &PaymentService{
		store:   store,
		gateway: gateway,
	}
}

// AttachReconciler wires the deferred-check scheduler. Without one, pending
// payments resolve only through callbacks or explicit status checks.
func (s *PaymentService) AttachReconciler(r *Reconciler) {
	s.reconciler = r
}

// InitiateParams carries an inbound payment request. Tenant and property are
// assumed valid by the caller.
type InitiateParams struct {
	TenantID    uint
	PropertyID  uint
	Amount      float64
	Phone       string
	Description string
}

// Initiate validates the request, persists a pending payment and asks the
// gateway to prompt the payer's device. The insert and the gateway call share
// a transaction: a failed initiation rolls the record back entirely, so no
// orphan payment is ever visible.
func (s *PaymentService) Initiate(ctx context.Context, params InitiateParams) (*models.Payment, error) {
	phone, err := NormalizePhone(params.Phone)
	if err != nil {
		return nil, err
	}
	if int64(params.Amount) < 1 {
		return nil, apperrors.New(apperrors.KindInvalidAmount, "amount must be at least 1")
	}

	payment := &models.Payment{
		Reference:  uuid.New().String(),
		TenantID:   params.TenantID,
		PropertyID: params.PropertyID,
		Amount:     int64(params.Amount),
		Phone:      phone,
		Status:     models.PaymentStatusPending,
		Method:     "mpesa_stk",
	}

	var ack *PushAck
	err = s.store.InTx(ctx, func(tx store.PaymentStore) error {
		if err := tx.Create(ctx, payment); err != nil {
			return err
		}

		a, err := s.gateway.STKPush(ctx, PushRequest{
			Amount:           params.Amount,
			Phone:            phone,
			AccountReference: fmt.Sprintf("RENT-%d", params.PropertyID),
			Description:      params.Description,
		})
		if err != nil {
			// Rolls back the insert; the caller may retry with a new request
			return err
		}
		ack = a

		notes, _ := json.Marshal(map[string]interface{}{
			"customer_message": ack.CustomerMessage,
			"phone_masked":     MaskPhone(phone),
		})
		ok, err := tx.UpdateIfStatus(ctx, payment.ID, models.PaymentStatusPending, map[string]interface{}{
			"checkout_request_id": ack.CheckoutRequestID,
			"merchant_request_id": ack.MerchantRequestID,
			"notes":               json.RawMessage(notes),
		})
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.New(apperrors.KindStore, "freshly created payment is no longer pending")
		}
		payment.CheckoutRequestID = &ack.CheckoutRequestID
		payment.MerchantRequestID = ack.MerchantRequestID
		payment.Notes = notes
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The sandbox offers no callback channel, so a deferred status check is
	// the only way a pending payment ever resolves there.
	if s.reconciler != nil && !s.gateway.CallbackCapable() {
		s.reconciler.Arm(ack.CheckoutRequestID, payment.ID, 0)
	}

	return payment, nil
}

// Resolve applies a gateway status result to its payment record. It is
// idempotent per correlation id: unknown records are logged and discarded,
// terminal records are left untouched, and a lost race against a concurrent
// resolution is a silent no-op.
func (s *PaymentService) Resolve(ctx context.Context, result *StatusResult) (ResolutionOutcome, error) {
	payment, err := s.store.GetByCheckoutRequestID(ctx, result.CheckoutRequestID)
	if err != nil {
		return OutcomeUnknown, err
	}
	if payment == nil {
		// The gateway notifies about expired or foreign requests too
		log.Printf("resolve: no payment for checkout request %s, discarding", result.CheckoutRequestID)
		return OutcomeUnknown, nil
	}
	if payment.Status.Terminal() {
		return OutcomeAlreadyResolved, nil
	}

	var status models.PaymentStatus
	var notes []byte
	if result.Succeeded() {
		status = models.PaymentStatusCompleted
		notes, _ = json.Marshal(map[string]interface{}{
			"receipt_number":   result.ReceiptNumber,
			"transaction_date": result.TransactionDate,
			"phone_masked":     MaskPhone(result.Phone),
			"balance":          result.Balance,
		})
	} else {
		status = models.PaymentStatusFailed
		notes, _ = json.Marshal(map[string]interface{}{
			"result_code": result.ResultCode,
			"result_desc": result.ResultDesc,
		})
	}

	ok, err := s.store.UpdateIfStatus(ctx, payment.ID, models.PaymentStatusPending, map[string]interface{}{
		"status": status,
		"notes":  json.RawMessage(notes),
	})
	if err != nil {
		return OutcomeUnknown, err
	}
	if !ok {
		// A concurrent resolution won; whichever terminal state it wrote stands
		return OutcomeAlreadyResolved, nil
	}

	if status == models.PaymentStatusCompleted {
		return OutcomeCompleted, nil
	}
	return OutcomeFailed, nil
}

// QueryAndResolve polls the gateway for a pending payment's outcome and
// resolves the record. Terminal payments never hit the gateway; their cached
// status is returned instead.
func (s *PaymentService) QueryAndResolve(ctx context.Context, checkoutRequestID string) (*StatusResult, error) {
	payment, err := s.store.GetByCheckoutRequestID(ctx, checkoutRequestID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "no payment for checkout request "+checkoutRequestID)
	}
	if payment.Status.Terminal() {
		return cachedStatus(payment), nil
	}

	result, err := s.gateway.QueryStatus(ctx, checkoutRequestID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Resolve(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// IngestCallback decodes an asynchronously delivered gateway notification and
// resolves the matching payment. Errors are returned for logging, but the
// HTTP layer acknowledges the gateway regardless of them.
func (s *PaymentService) IngestCallback(ctx context.Context, payload []byte) error {
	result, err := DecodeCallback(payload)
	if err != nil {
		return err
	}
	if _, err := s.Resolve(ctx, result); err != nil {
		return err
	}
	return nil
}

// MarkRefunded is the administrative transition out of completed. It is not
// part of the gateway flow. Returns false when the payment was not in the
// completed state.
func (s *PaymentService) MarkRefunded(ctx context.Context, paymentID uint) (bool, error) {
	return s.store.UpdateIfStatus(ctx, paymentID, models.PaymentStatusCompleted, map[string]interface{}{
		"status": models.PaymentStatusRefunded,
	})
}

// cachedStatus rebuilds a StatusResult from a terminally resolved record so
// status checks never re-contact the gateway
func cachedStatus(payment *models.Payment) *StatusResult {
	result := &StatusResult{
		MerchantRequestID: payment.MerchantRequestID,
		ResultDesc:        "The service request is processed successfully.",
	}
	if payment.CheckoutRequestID != nil {
		result.CheckoutRequestID = *payment.CheckoutRequestID
	}

	var notes map[string]interface{}
	if len(payment.Notes) > 0 {
		_ = json.Unmarshal(payment.Notes, &notes)
	}

	switch payment.Status {
	case models.PaymentStatusFailed:
		if code, ok := notes["result_code"].(float64); ok {
			result.ResultCode = int(code)
		} else {
			result.ResultCode = 1
		}
		if desc, ok := notes["result_desc"].(string); ok {
			result.ResultDesc = desc
		} else {
			result.ResultDesc = "The payment failed."
		}
	default:
		// completed and refunded both settled successfully at the gateway
		if receipt, ok := notes["receipt_number"].(string); ok {
			result.ReceiptNumber = receipt
		}
		if date, ok := notes["transaction_date"].(string); ok {
			result.TransactionDate = date
		}
		if balance, ok := notes["balance"].(string); ok {
			result.Balance = balance
		}
		result.Amount = payment.Amount
	}
	return result
}
