package handlers

import (
	"kodisha_app/internal/models"
	"kodisha_app/internal/services"
)

// paymentResponse is the external projection of a payment record. The raw
// phone number never leaves the system; only the masked form is exposed.
func paymentResponse(p *models.Payment) map[string]interface{} {
	return map[string]interface{}{
		"id":                  p.ID,
		"reference":           p.Reference,
		"tenant_id":           p.TenantID,
		"property_id":         p.PropertyID,
		"amount":              p.Amount,
		"phone":               services.MaskPhone(p.Phone),
		"status":              p.Status,
		"method":              p.Method,
		"checkout_request_id": p.CheckoutRequestID,
		"merchant_request_id": p.MerchantRequestID,
		"notes":               p.Notes,
		"created_at":          p.CreatedAt,
		"updated_at":          p.UpdatedAt,
	}
}
