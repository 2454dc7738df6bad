package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"kodisha_app/internal/models"
	"kodisha_app/internal/services"
	"kodisha_app/internal/store"
)

// The worker is the restart-safe reconciliation net: the server's in-process
// deferred checks die with the process, so this sweep finds payments stuck
// pending and reconciles them against the gateway.

const (
	sweepInterval = 5 * time.Minute
	// A payment younger than this may still be waiting on the payer's device
	stalePendingAge = 2 * time.Minute
	sweepBatchSize  = 100
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	db, err := services.InitDB(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	gateway := services.NewGatewayFromEnv()
	paymentService := services.NewPaymentService(store.NewPaymentStore(db), gateway)

	log.Println("Reconciliation worker started. Waiting for next tick...")

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down worker...")
		cancel()
	}()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	// Run once immediately so a restart catches up without waiting a full tick
	sweepPendingPayments(ctx, db, paymentService)

	for {
		select {
		case <-ticker.C:
			sweepPendingPayments(ctx, db, paymentService)
		case <-ctx.Done():
			return
		}
	}
}

func sweepPendingPayments(ctx context.Context, db *gorm.DB, paymentService *services.PaymentService) {
	log.Println("Checking for stale pending payments...")

	cutoff := time.Now().Add(-stalePendingAge)

	var payments []models.Payment
	err := db.WithContext(ctx).
		Where("status = ? AND checkout_request_id IS NOT NULL AND created_at <= ?", models.PaymentStatusPending, cutoff).
		Limit(sweepBatchSize).
		Find(&payments).Error
	if err != nil {
		log.Printf("Error fetching pending payments: %v", err)
		return
	}

	if len(payments) == 0 {
		log.Println("No stale pending payments found.")
		return
	}

	log.Printf("Found %d stale pending payments.", len(payments))

	for _, payment := range payments {
		if ctx.Err() != nil {
			return
		}

		result, err := paymentService.QueryAndResolve(ctx, *payment.CheckoutRequestID)
		if err != nil {
			log.Printf("Failed to reconcile payment %d: %v", payment.ID, err)
			continue
		}
		log.Printf("Reconciled payment %d: result code %d (%s)", payment.ID, result.ResultCode, result.ResultDesc)
	}
}
