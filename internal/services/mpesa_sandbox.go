package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SandboxGateway simulates the provider for development deployments that
// cannot receive callbacks. Every accepted push settles successfully on the
// next status query, deterministically, so local flows are reproducible.
type SandboxGateway struct {
	cfg MpesaConfig

	mu     sync.Mutex
	pushes map[string]PushRequest // keyed by checkout request id
}

func NewSandboxGateway(cfg MpesaConfig) *SandboxGateway {
	return &SandboxGateway{
		cfg:    cfg,
		pushes: make(map[string]PushRequest),
	}
}

// CallbackCapable is false: the sandbox never pushes callbacks, so the
// reconciliation scheduler is the resolution path.
func (g *SandboxGateway) CallbackCapable() bool {
	return false
}

func (g *SandboxGateway) Authenticate(ctx context.Context) (string, error) {
	return "sandbox-token", nil
}

func (g *SandboxGateway) STKPush(ctx context.Context, req PushRequest) (*PushAck, error) {
	req, _, err := validatePushRequest(req, g.cfg.MaxAmount)
	if err != nil {
		return nil, err
	}

	checkoutRequestID := "ws_CO_" + uuid.New().String()

	g.mu.Lock()
	g.pushes[checkoutRequestID] = req
	g.mu.Unlock()

	return &PushAck{
		MerchantRequestID: uuid.New().String(),
		CheckoutRequestID: checkoutRequestID,
		CustomerMessage:   "Success. Request accepted for processing",
	}, nil
}

func (g *SandboxGateway) QueryStatus(ctx context.Context, checkoutRequestID string) (*StatusResult, error) {
	g.mu.Lock()
	push, known := g.pushes[checkoutRequestID]
	g.mu.Unlock()

	if !known {
		// Mirrors the provider's behavior for expired or foreign requests
		return &StatusResult{
			CheckoutRequestID: checkoutRequestID,
			ResultCode:        1032,
			ResultDesc:        "Request cancelled by user",
		}, nil
	}

	return &StatusResult{
		CheckoutRequestID: checkoutRequestID,
		ResultCode:        0,
		ResultDesc:        "The service request is processed successfully.",
		ReceiptNumber:     sandboxReceipt(checkoutRequestID),
		TransactionDate:   time.Now().Format("20060102150405"),
		Phone:             push.Phone,
		Balance:           fmt.Sprintf("%d", int64(push.Amount)),
		Amount:            int64(push.Amount),
	}, nil
}

// sandboxReceipt derives a stable receipt number from the checkout request id
func sandboxReceipt(checkoutRequestID string) string {
	trimmed := strings.TrimPrefix(checkoutRequestID, "ws_CO_")
	cleaned := strings.ToUpper(strings.ReplaceAll(trimmed, "-", ""))
	if len(cleaned) > 10 {
		cleaned = cleaned[:10]
	}
	return "SBX" + cleaned
}
