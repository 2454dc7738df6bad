package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"kodisha_app/internal/models"
)

type ComplaintHandler struct {
	db *gorm.DB
}

func NewComplaintHandler(db *gorm.DB) *ComplaintHandler {
	return &ComplaintHandler{db: db}
}

type complaintRequest struct {
	TenantID    uint   `json:"tenant_id"`
	PropertyID  uint   `json:"property_id"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

func (h *ComplaintHandler) List(c echo.Context) error {
	query := h.db.Order("created_at desc")
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if propertyID := c.QueryParam("property_id"); propertyID != "" {
		query = query.Where("property_id = ?", propertyID)
	}

	var complaints []models.Complaint
	if err := query.Find(&complaints).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch complaints")
	}
	return c.JSON(http.StatusOK, complaints)
}

func (h *ComplaintHandler) Create(c echo.Context) error {
	var req complaintRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.TenantID == 0 || req.Subject == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "tenant_id and subject are required")
	}

	complaint := models.Complaint{
		TenantID:    req.TenantID,
		PropertyID:  req.PropertyID,
		Subject:     req.Subject,
		Description: req.Description,
		Status:      models.ComplaintStatusOpen,
	}
	if err := h.db.Create(&complaint).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create complaint")
	}
	return c.JSON(http.StatusCreated, complaint)
}

func (h *ComplaintHandler) Resolve(c echo.Context) error {
	var complaint models.Complaint
	if err := h.db.First(&complaint, c.Param("id")).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Complaint not found")
	}

	complaint.Status = models.ComplaintStatusResolved
	if err := h.db.Save(&complaint).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update complaint")
	}
	return c.JSON(http.StatusOK, complaint)
}
