package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"kodisha_app/internal/apperrors"
)

const (
	phoneCountryCode = "254"
	phoneLength      = 12

	maxAccountReferenceLen = 12
	maxDescriptionLen      = 13

	defaultMaxAmount = 500000
)

// PushRequest describes an STK push to present on the payer's device
type PushRequest struct {
	Amount           float64
	Phone            string // normalized, 254XXXXXXXXX
	AccountReference string
	Description      string
}

// PushAck is the gateway's acknowledgement of an accepted push request
type PushAck struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	CustomerMessage   string `json:"CustomerMessage"`
}

// StatusResult is the single shape both resolution channels produce: the
// synchronous status query and the asynchronous callback decode to the same
// struct, so the coordinator resolves payments through one code path.
type StatusResult struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string

	// Settlement metadata, populated only when ResultCode == 0
	ReceiptNumber   string
	TransactionDate string
	Phone           string
	Balance         string
	Amount          int64
}

// Succeeded reports whether the gateway settled the payment
func (r *StatusResult) Succeeded() bool {
	return r.ResultCode == 0
}

// Gateway is the capability contract for the external payment provider.
// The live and sandbox variants are selected at construction time; business
// logic never branches on deployment mode.
type Gateway interface {
	// Authenticate returns a valid bearer token, refreshing the cached
	// session when needed.
	Authenticate(ctx context.Context) (string, error)
	// STKPush asks the provider to prompt the payer's device. Purely a
	// gateway call; nothing is persisted here.
	STKPush(ctx context.Context, req PushRequest) (*PushAck, error)
	// QueryStatus polls the provider for the outcome of a pending push.
	QueryStatus(ctx context.Context, checkoutRequestID string) (*StatusResult, error)
	// CallbackCapable reports whether this deployment receives provider
	// callbacks. When false, the reconciliation scheduler is the resolution
	// path.
	CallbackCapable() bool
}

// MpesaConfig holds the gateway credentials and endpoints, loaded from the
// environment
type MpesaConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
	MaxAmount      int64
	Timeout        time.Duration
}

// LoadMpesaConfig reads the gateway configuration from environment variables
func LoadMpesaConfig() MpesaConfig {
	cfg := MpesaConfig{
		BaseURL:        getEnv("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke"),
		ConsumerKey:    os.Getenv("MPESA_CONSUMER_KEY"),
		ConsumerSecret: os.Getenv("MPESA_CONSUMER_SECRET"),
		ShortCode:      getEnv("MPESA_SHORTCODE", "174379"),
		Passkey:        os.Getenv("MPESA_PASSKEY"),
		CallbackURL:    os.Getenv("MPESA_CALLBACK_URL"),
		MaxAmount:      defaultMaxAmount,
		Timeout:        30 * time.Second,
	}
	if v := os.Getenv("MPESA_MAX_AMOUNT"); v != "" {
		if max, err := strconv.ParseInt(v, 10, 64); err == nil && max > 0 {
			cfg.MaxAmount = max
		}
	}
	return cfg
}

// NewGatewayFromEnv constructs the gateway variant for this deployment.
// MPESA_ENV=production selects the live client; anything else gets the
// sandbox simulator.
func NewGatewayFromEnv() Gateway {
	cfg := LoadMpesaConfig()
	if os.Getenv("MPESA_ENV") == "production" {
		return NewDarajaGateway(cfg)
	}
	return NewSandboxGateway(cfg)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NormalizePhone standardizes a dialable phone number to the 12-digit
// 254XXXXXXXXX form. Accepts input with or without the country code and with
// or without the leading trunk zero.
func NormalizePhone(raw string) (string, error) {
	phone := strings.TrimSpace(raw)
	phone = strings.TrimPrefix(phone, "+")
	phone = strings.ReplaceAll(phone, " ", "")

	if phone == "" {
		return "", apperrors.New(apperrors.KindInvalidPhone, "phone number is empty")
	}
	for _, c := range phone {
		if c < '0' || c > '9' {
			return "", apperrors.New(apperrors.KindInvalidPhone, fmt.Sprintf("phone number contains non-dial character %q", c))
		}
	}

	// Standardize numbers starting with the trunk '0' to the country code
	if strings.HasPrefix(phone, "0") {
		phone = phoneCountryCode + strings.TrimPrefix(phone, "0")
	} else if !strings.HasPrefix(phone, phoneCountryCode) {
		phone = phoneCountryCode + phone
	}

	if len(phone) != phoneLength {
		return "", apperrors.New(apperrors.KindInvalidPhone, fmt.Sprintf("normalized phone %s is not %d digits", phone, phoneLength))
	}
	return phone, nil
}

// MaskPhone hides the middle digits of a normalized phone number for
// externally visible projections
func MaskPhone(phone string) string {
	if len(phone) < 9 {
		return phone
	}
	return phone[:6] + "***" + phone[len(phone)-3:]
}

// validatePushRequest checks the gateway-side constraints shared by the live
// and sandbox clients, returning the request with the amount truncated to
// whole currency units and the reference fields clipped to provider limits.
func validatePushRequest(req PushRequest, maxAmount int64) (PushRequest, int64, error) {
	amount := int64(req.Amount)
	if amount < 1 {
		return req, 0, apperrors.New(apperrors.KindInvalidAmount, "amount must be at least 1")
	}
	if amount > maxAmount {
		return req, 0, apperrors.New(apperrors.KindInvalidAmount, fmt.Sprintf("amount exceeds the maximum of %d", maxAmount))
	}
	if len(req.AccountReference) > maxAccountReferenceLen {
		req.AccountReference = req.AccountReference[:maxAccountReferenceLen]
	}
	if len(req.Description) > maxDescriptionLen {
		req.Description = req.Description[:maxDescriptionLen]
	}
	return req, amount, nil
}

// stkCallbackBody mirrors the provider's nested notification payload
type stkCallbackBody struct {
	Body *struct {
		StkCallback *struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  *struct {
				Item []struct {
					Name  string      `json:"Name"`
					Value interface{} `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// DecodeCallback parses an asynchronously delivered gateway notification into
// the same StatusResult shape QueryStatus returns
func DecodeCallback(payload []byte) (*StatusResult, error) {
	var body stkCallbackBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, apperrors.Wrap(apperrors.KindMalformedCallback, "callback payload is not valid JSON", err)
	}
	if body.Body == nil || body.Body.StkCallback == nil {
		return nil, apperrors.New(apperrors.KindMalformedCallback, "callback payload missing Body.stkCallback")
	}

	cb := body.Body.StkCallback
	result := &StatusResult{
		MerchantRequestID: cb.MerchantRequestID,
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
	}

	if cb.CallbackMetadata != nil {
		for _, item := range cb.CallbackMetadata.Item {
			switch item.Name {
			case "MpesaReceiptNumber":
				if v, ok := item.Value.(string); ok {
					result.ReceiptNumber = v
				}
			case "TransactionDate":
				result.TransactionDate = metadataString(item.Value)
			case "PhoneNumber":
				result.Phone = metadataString(item.Value)
			case "Balance":
				result.Balance = metadataString(item.Value)
			case "Amount":
				if v, ok := item.Value.(float64); ok {
					result.Amount = int64(v)
				}
			}
		}
	}

	return result, nil
}

// metadataString renders a callback metadata value, which the provider sends
// as either a string or a JSON number
func metadataString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}
