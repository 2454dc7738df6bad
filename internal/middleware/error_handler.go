package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"kodisha_app/internal/apperrors"
)

// errorResponse is the JSON body every failed request gets
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CustomErrorHandler translates internal error kinds into actionable API
// responses. Validation problems come back as 400s with a usable hint;
// everything unexpected stays a generic 500 so internals never leak.
func CustomErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	resp := errorResponse{
		Error:   "internal_error",
		Message: "Something went wrong. Please try again later.",
	}

	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case apperrors.KindInvalidAmount:
			code = http.StatusBadRequest
			resp = errorResponse{Error: "invalid_amount", Message: appErr.Message}
		case apperrors.KindInvalidPhone:
			code = http.StatusBadRequest
			resp = errorResponse{Error: "invalid_phone", Message: "Invalid phone number, use format 07XXXXXXXX"}
		case apperrors.KindNotFound:
			code = http.StatusNotFound
			resp = errorResponse{Error: "not_found", Message: appErr.Message}
		case apperrors.KindAuthentication:
			code = http.StatusBadGateway
			resp = errorResponse{Error: "gateway_auth_failed", Message: "Could not authenticate with the payment provider. Please try again later."}
		case apperrors.KindGateway:
			code = http.StatusBadGateway
			resp = errorResponse{Error: "gateway_error", Message: appErr.Message}
		case apperrors.KindMalformedCallback:
			code = http.StatusBadRequest
			resp = errorResponse{Error: "malformed_callback", Message: appErr.Message}
		case apperrors.KindStore:
			code = http.StatusInternalServerError
			resp = errorResponse{Error: "store_error", Message: "A storage error occurred. Please try again later."}
		}
	} else if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		resp.Error = http.StatusText(code)
		if msg, ok := he.Message.(string); ok && msg != "" {
			resp.Message = msg
		} else {
			resp.Message = http.StatusText(code)
		}
	}

	c.Logger().Error(err)

	if err := c.JSON(code, resp); err != nil {
		c.Logger().Error(err)
	}
}
