package services

import (
	"context"
	"testing"
	"time"

	"kodisha_app/internal/models"
)

func TestReconcilerResolvesPendingPayment(t *testing.T) {
	st := newFakeStore()
	gw := &fakeGateway{
		// No callback channel, like the sandbox
		callbackCapable: false,
		queryResult: &StatusResult{
			ResultCode:    0,
			ReceiptNumber: "REC001",
			Phone:         "254712345678",
		},
	}
	svc := NewPaymentService(st, gw)
	reconciler := NewReconciler(svc, 10*time.Millisecond)
	defer reconciler.Close()
	svc.AttachReconciler(reconciler)

	payment := initiateTestPayment(t, svc)

	deadline := time.Now().Add(2 * time.Second)
	for {
		stored, err := st.GetByID(context.Background(), payment.ID)
		if err != nil {
			t.Fatalf("stored payment missing: %v", err)
		}
		if stored.Status == models.PaymentStatusCompleted {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("payment still %s after deferred check window", stored.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestReconcilerIsNoOpAfterCallbackResolution(t *testing.T) {
	st := newFakeStore()
	gw := &fakeGateway{
		callbackCapable: false,
		queryResult: &StatusResult{
			ResultCode:    0,
			ReceiptNumber: "REC002",
		},
	}
	svc := NewPaymentService(st, gw)
	reconciler := NewReconciler(svc, 50*time.Millisecond)
	defer reconciler.Close()
	svc.AttachReconciler(reconciler)

	payment := initiateTestPayment(t, svc)

	// A callback-style resolution lands before the deferred check fires
	if _, err := svc.Resolve(context.Background(), &StatusResult{
		CheckoutRequestID: *payment.CheckoutRequestID,
		ResultCode:        1032,
		ResultDesc:        "Request cancelled by user",
	}); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	time.Sleep(150 * time.Millisecond)

	stored, _ := st.GetByID(context.Background(), payment.ID)
	if stored.Status != models.PaymentStatusFailed {
		t.Errorf("status = %s; want failed (deferred check must not overwrite)", stored.Status)
	}
}

func TestReconcilerCloseCancelsPendingChecks(t *testing.T) {
	st := newFakeStore()
	gw := &fakeGateway{
		callbackCapable: false,
		queryResult:     &StatusResult{ResultCode: 0, ReceiptNumber: "REC003"},
	}
	svc := NewPaymentService(st, gw)
	reconciler := NewReconciler(svc, time.Hour)
	svc.AttachReconciler(reconciler)

	payment := initiateTestPayment(t, svc)

	done := make(chan struct{})
	go func() {
		reconciler.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not cancel the armed check")
	}

	stored, _ := st.GetByID(context.Background(), payment.ID)
	if stored.Status != models.PaymentStatusPending {
		t.Errorf("status = %s; want pending after cancellation", stored.Status)
	}
}
