package services

import (
	"context"
	"log"
	"sync"
	"time"
)

// Reconciler schedules a single deferred status check for a freshly initiated
// payment. It is the resolution net for deployments where the gateway cannot
// push callbacks; in callback-capable deployments it stays inert. There is no
// retry loop: one check per arm, and a record that already resolved via
// callback makes the deferred resolve a no-op, so nothing needs explicit
// cancellation.
type Reconciler struct {
	payments *PaymentService
	delay    time.Duration
	timeout  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewReconciler(payments *PaymentService, delay time.Duration) *Reconciler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Reconciler{
		payments: payments,
		delay:    delay,
		timeout:  time.Minute,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Arm schedules exactly one deferred QueryAndResolve for the given
// correlation id. A non-positive delay uses the reconciler's default.
func (r *Reconciler) Arm(checkoutRequestID string, paymentID uint, delay time.Duration) {
	if delay <= 0 {
		delay = r.delay
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-r.ctx.Done():
			return
		}

		ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
		defer cancel()

		if _, err := r.payments.QueryAndResolve(ctx, checkoutRequestID); err != nil {
			log.Printf("reconciler: deferred check for payment %d failed: %v", paymentID, err)
		}
	}()
}

// Close cancels pending checks and waits for in-flight ones to finish
func (r *Reconciler) Close() {
	r.cancel()
	r.wg.Wait()
}
