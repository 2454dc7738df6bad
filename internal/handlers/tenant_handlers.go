package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"kodisha_app/internal/models"
	"kodisha_app/internal/services"
)

type TenantHandler struct {
	db *gorm.DB
}

func NewTenantHandler(db *gorm.DB) *TenantHandler {
	return &TenantHandler{db: db}
}

type tenantRequest struct {
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	PropertyID uint       `json:"property_id"`
	MoveInDate *time.Time `json:"move_in_date"`
}

func (h *TenantHandler) List(c echo.Context) error {
	query := h.db.Order("created_at desc")
	if propertyID := c.QueryParam("property_id"); propertyID != "" {
		query = query.Where("property_id = ?", propertyID)
	}

	var tenants []models.Tenant
	if err := query.Find(&tenants).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch tenants")
	}
	return c.JSON(http.StatusOK, tenants)
}

func (h *TenantHandler) Get(c echo.Context) error {
	var tenant models.Tenant
	if err := h.db.Preload("Property").First(&tenant, c.Param("id")).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Tenant not found")
	}
	return c.JSON(http.StatusOK, tenant)
}

func (h *TenantHandler) Create(c echo.Context) error {
	var req tenantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Name == "" || req.PropertyID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Tenant name and property_id are required")
	}

	// Store the dialable form so payment initiation can reuse it directly
	phone, err := services.NormalizePhone(req.Phone)
	if err != nil {
		return err
	}

	tenant := models.Tenant{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      phone,
		PropertyID: req.PropertyID,
		MoveInDate: req.MoveInDate,
	}
	if err := h.db.Create(&tenant).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create tenant")
	}
	return c.JSON(http.StatusCreated, tenant)
}

func (h *TenantHandler) Update(c echo.Context) error {
	var tenant models.Tenant
	if err := h.db.First(&tenant, c.Param("id")).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Tenant not found")
	}

	var req tenantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	if req.Phone != "" {
		phone, err := services.NormalizePhone(req.Phone)
		if err != nil {
			return err
		}
		tenant.Phone = phone
	}
	tenant.Name = req.Name
	tenant.Email = req.Email
	if req.PropertyID != 0 {
		tenant.PropertyID = req.PropertyID
	}
	if req.MoveInDate != nil {
		tenant.MoveInDate = req.MoveInDate
	}
	if err := h.db.Save(&tenant).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update tenant")
	}
	return c.JSON(http.StatusOK, tenant)
}

func (h *TenantHandler) Delete(c echo.Context) error {
	if err := h.db.Delete(&models.Tenant{}, c.Param("id")).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete tenant")
	}
	return c.NoContent(http.StatusNoContent)
}
