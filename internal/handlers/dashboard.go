package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"kodisha_app/internal/models"
	"kodisha_app/internal/services"
)

// DashboardHandler serves aggregate counts for the management overview
type DashboardHandler struct {
	db    *gorm.DB
	cache *services.RedisCache
}

func NewDashboardHandler(db *gorm.DB, cache *services.RedisCache) *DashboardHandler {
	return &DashboardHandler{db: db, cache: cache}
}

type dashboardSummary struct {
	Properties         int64 `json:"properties"`
	OccupiedUnits      int64 `json:"occupied_units"`
	Tenants            int64 `json:"tenants"`
	OpenComplaints     int64 `json:"open_complaints"`
	PendingPayments    int64 `json:"pending_payments"`
	CollectedThisMonth int64 `json:"collected_this_month"`
}

// Dashboard returns the summary, cached for a minute
func (h *DashboardHandler) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()

	var summary dashboardSummary
	var err error
	if h.cache != nil {
		summary, err = services.GetOrSet(h.cache, ctx, "dashboard:summary", time.Minute, func() (dashboardSummary, error) {
			return h.buildSummary()
		})
	} else {
		summary, err = h.buildSummary()
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to build dashboard summary")
	}

	return c.JSON(http.StatusOK, summary)
}

func (h *DashboardHandler) buildSummary() (dashboardSummary, error) {
	var summary dashboardSummary

	if err := h.db.Model(&models.Property{}).Count(&summary.Properties).Error; err != nil {
		return summary, err
	}
	if err := h.db.Model(&models.Property{}).Where("occupied = ?", true).Count(&summary.OccupiedUnits).Error; err != nil {
		return summary, err
	}
	if err := h.db.Model(&models.Tenant{}).Count(&summary.Tenants).Error; err != nil {
		return summary, err
	}
	if err := h.db.Model(&models.Complaint{}).Where("status = ?", models.ComplaintStatusOpen).Count(&summary.OpenComplaints).Error; err != nil {
		return summary, err
	}
	if err := h.db.Model(&models.Payment{}).Where("status = ?", models.PaymentStatusPending).Count(&summary.PendingPayments).Error; err != nil {
		return summary, err
	}

	monthStart := time.Now().AddDate(0, 0, 1-time.Now().Day()).Truncate(24 * time.Hour)
	row := h.db.Model(&models.Payment{}).
		Where("status = ? AND updated_at >= ?", models.PaymentStatusCompleted, monthStart).
		Select("COALESCE(SUM(amount), 0)").
		Row()
	if err := row.Scan(&summary.CollectedThisMonth); err != nil {
		return summary, err
	}

	return summary, nil
}
