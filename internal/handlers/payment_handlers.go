package handlers

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"kodisha_app/internal/models"
	"kodisha_app/internal/services"
)

type PaymentHandler struct {
	db       *gorm.DB
	payments *services.PaymentService
	cache    *services.RedisCache
}

func NewPaymentHandler(db *gorm.DB, payments *services.PaymentService, cache *services.RedisCache) *PaymentHandler {
	return &PaymentHandler{db: db, payments: payments, cache: cache}
}

type initiatePaymentRequest struct {
	TenantID    uint    `json:"tenant_id"`
	PropertyID  uint    `json:"property_id"`
	Amount      float64 `json:"amount"`
	Phone       string  `json:"phone"`
	Description string  `json:"description"`
}

// Initiate starts an STK push payment for a tenant
func (h *PaymentHandler) Initiate(c echo.Context) error {
	var req initiatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.TenantID == 0 || req.PropertyID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "tenant_id and property_id are required")
	}

	payment, err := h.payments.Initiate(c.Request().Context(), services.InitiateParams{
		TenantID:    req.TenantID,
		PropertyID:  req.PropertyID,
		Amount:      req.Amount,
		Phone:       req.Phone,
		Description: req.Description,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, paymentResponse(payment))
}

// Callback ingests the gateway's asynchronous payment notification. The
// gateway is always answered with the fixed success acknowledgement, even
// when internal resolution fails, to prevent redelivery storms.
func (h *PaymentHandler) Callback(c echo.Context) error {
	ctx := c.Request().Context()

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		c.Logger().Errorf("callback: failed to read body: %v", err)
		return callbackAck(c)
	}

	// Keep the raw notification for audit before anything can fail
	if h.db != nil {
		if err := h.db.WithContext(ctx).Create(&models.CallbackLog{Payload: payload}).Error; err != nil {
			c.Logger().Errorf("callback: failed to log payload: %v", err)
		}
	}

	if h.cache != nil {
		if result, err := services.DecodeCallback(payload); err == nil {
			if fresh, err := h.cache.MarkCallbackSeen(ctx, result.CheckoutRequestID); err == nil && !fresh {
				c.Logger().Warnf("callback: duplicate delivery for checkout request %s", result.CheckoutRequestID)
			}
		}
	}

	if err := h.payments.IngestCallback(ctx, payload); err != nil {
		c.Logger().Errorf("callback: ingest failed: %v", err)
	}

	return callbackAck(c)
}

func callbackAck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"ResultCode": 0,
		"ResultDesc": "Accepted",
	})
}

// Status returns the payment's current state, reconciling pending records
// against the gateway first
func (h *PaymentHandler) Status(c echo.Context) error {
	reference := c.Param("reference")

	var payment models.Payment
	if err := h.db.Where("reference = ?", reference).First(&payment).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Payment not found")
	}

	if payment.Status == models.PaymentStatusPending && payment.CheckoutRequestID != nil {
		if _, err := h.payments.QueryAndResolve(c.Request().Context(), *payment.CheckoutRequestID); err != nil {
			// Proceed with the stored status
			c.Logger().Errorf("status: failed to reconcile payment %d: %v", payment.ID, err)
		}
		if err := h.db.First(&payment, payment.ID).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch payment")
		}
	}

	return c.JSON(http.StatusOK, paymentResponse(&payment))
}

// Refund applies the administrative refunded transition to a completed payment
func (h *PaymentHandler) Refund(c echo.Context) error {
	reference := c.Param("reference")

	var payment models.Payment
	if err := h.db.Where("reference = ?", reference).First(&payment).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Payment not found")
	}

	ok, err := h.payments.MarkRefunded(c.Request().Context(), payment.ID)
	if err != nil {
		return err
	}
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Only completed payments can be refunded")
	}

	if err := h.db.First(&payment, payment.ID).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch payment")
	}
	return c.JSON(http.StatusOK, paymentResponse(&payment))
}

// List returns payments, optionally filtered by tenant
func (h *PaymentHandler) List(c echo.Context) error {
	query := h.db.Order("created_at desc")
	if tenantID := c.QueryParam("tenant_id"); tenantID != "" {
		query = query.Where("tenant_id = ?", tenantID)
	}

	var payments []models.Payment
	if err := query.Limit(100).Find(&payments).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch payments")
	}

	responses := make([]map[string]interface{}, 0, len(payments))
	for i := range payments {
		responses = append(responses, paymentResponse(&payments[i]))
	}
	return c.JSON(http.StatusOK, responses)
}
