package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"kodisha_app/internal/models"
)

type PropertyHandler struct {
	db *gorm.DB
}

func NewPropertyHandler(db *gorm.DB) *PropertyHandler {
	return &PropertyHandler{db: db}
}

type propertyRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	UnitType string `json:"unit_type"`
	Rent     int64  `json:"rent"`
	Occupied bool   `json:"occupied"`
}

func (h *PropertyHandler) List(c echo.Context) error {
	var properties []models.Property
	if err := h.db.Order("created_at desc").Find(&properties).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch properties")
	}
	return c.JSON(http.StatusOK, properties)
}

func (h *PropertyHandler) Get(c echo.Context) error {
	var property models.Property
	if err := h.db.Preload("Tenants").First(&property, c.Param("id")).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Property not found")
	}
	return c.JSON(http.StatusOK, property)
}

func (h *PropertyHandler) Create(c echo.Context) error {
	var req propertyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Property name is required")
	}

	property := models.Property{
		Name:     req.Name,
		Location: req.Location,
		UnitType: req.UnitType,
		Rent:     req.Rent,
		Occupied: req.Occupied,
	}
	if err := h.db.Create(&property).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create property")
	}
	return c.JSON(http.StatusCreated, property)
}

func (h *PropertyHandler) Update(c echo.Context) error {
	var property models.Property
	if err := h.db.First(&property, c.Param("id")).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Property not found")
	}

	var req propertyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	property.Name = req.Name
	property.Location = req.Location
	property.UnitType = req.UnitType
	property.Rent = req.Rent
	property.Occupied = req.Occupied
	if err := h.db.Save(&property).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update property")
	}
	return c.JSON(http.StatusOK, property)
}

func (h *PropertyHandler) Delete(c echo.Context) error {
	if err := h.db.Delete(&models.Property{}, c.Param("id")).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete property")
	}
	return c.NoContent(http.StatusNoContent)
}
