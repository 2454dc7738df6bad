package services

import (
	"context"
	"testing"
)

func TestSandboxPushAndQuery(t *testing.T) {
	gw := NewSandboxGateway(MpesaConfig{MaxAmount: defaultMaxAmount})
	ctx := context.Background()

	if gw.CallbackCapable() {
		t.Fatal("sandbox must not report callback capability")
	}

	ack, err := gw.STKPush(ctx, PushRequest{Amount: 500, Phone: "254712345678", AccountReference: "RENT-1", Description: "Rent"})
	if err != nil {
		t.Fatalf("STKPush returned error: %v", err)
	}
	if ack.CheckoutRequestID == "" || ack.MerchantRequestID == "" {
		t.Fatalf("STKPush ack missing identifiers: %+v", ack)
	}

	result, err := gw.QueryStatus(ctx, ack.CheckoutRequestID)
	if err != nil {
		t.Fatalf("QueryStatus returned error: %v", err)
	}
	if !result.Succeeded() {
		t.Errorf("sandbox query result code = %d; want 0", result.ResultCode)
	}
	if result.ReceiptNumber == "" {
		t.Error("sandbox query missing receipt number")
	}
	if result.Phone != "254712345678" {
		t.Errorf("sandbox query phone = %q", result.Phone)
	}

	// Stable receipts make reruns reproducible
	again, err := gw.QueryStatus(ctx, ack.CheckoutRequestID)
	if err != nil {
		t.Fatalf("second QueryStatus returned error: %v", err)
	}
	if again.ReceiptNumber != result.ReceiptNumber {
		t.Errorf("receipt changed between queries: %q vs %q", result.ReceiptNumber, again.ReceiptNumber)
	}
}

func TestSandboxQueryUnknownRequest(t *testing.T) {
	gw := NewSandboxGateway(MpesaConfig{MaxAmount: defaultMaxAmount})

	result, err := gw.QueryStatus(context.Background(), "ws_CO_unknown")
	if err != nil {
		t.Fatalf("QueryStatus returned error: %v", err)
	}
	if result.Succeeded() {
		t.Error("unknown checkout request reported success")
	}
}
