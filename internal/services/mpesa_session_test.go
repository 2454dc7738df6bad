package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"kodisha_app/internal/apperrors"
)

func TestSessionSingleFlightRefresh(t *testing.T) {
	session := NewGatewaySession()

	var fetches int32
	fetch := func(ctx context.Context) (string, time.Duration, error) {
		atomic.AddInt32(&fetches, 1)
		time.Sleep(50 * time.Millisecond)
		return "token-1", time.Hour, nil
	}

	const callers = 10
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = session.Token(context.Background(), fetch)
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&fetches); got != 1 {
		t.Errorf("fetch called %d times; want 1", got)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d got error: %v", i, errs[i])
		}
		if tokens[i] != "token-1" {
			t.Errorf("caller %d got token %q", i, tokens[i])
		}
	}
}

func TestSessionReusesFreshToken(t *testing.T) {
	session := NewGatewaySession()

	var fetches int32
	fetch := func(ctx context.Context) (string, time.Duration, error) {
		atomic.AddInt32(&fetches, 1)
		return "token-1", time.Hour, nil
	}

	for i := 0; i < 3; i++ {
		if _, err := session.Token(context.Background(), fetch); err != nil {
			t.Fatalf("Token returned error: %v", err)
		}
	}

	if got := atomic.LoadInt32(&fetches); got != 1 {
		t.Errorf("fetch called %d times; want 1", got)
	}
}

func TestSessionRefreshesNearExpiry(t *testing.T) {
	session := NewGatewaySession()

	var fetches int32
	// TTL inside the safety margin, so the token is stale immediately
	fetch := func(ctx context.Context) (string, time.Duration, error) {
		atomic.AddInt32(&fetches, 1)
		return "token", time.Second, nil
	}

	for i := 0; i < 2; i++ {
		if _, err := session.Token(context.Background(), fetch); err != nil {
			t.Fatalf("Token returned error: %v", err)
		}
	}

	if got := atomic.LoadInt32(&fetches); got != 2 {
		t.Errorf("fetch called %d times; want 2", got)
	}
}

func TestSessionRefreshFailure(t *testing.T) {
	session := NewGatewaySession()

	failing := func(ctx context.Context) (string, time.Duration, error) {
		return "", 0, errors.New("credentials rejected")
	}

	_, err := session.Token(context.Background(), failing)
	if err == nil {
		t.Fatal("Token succeeded with failing fetch")
	}
	if !apperrors.IsKind(err, apperrors.KindAuthentication) {
		t.Errorf("error kind = %v; want %v", apperrors.KindOf(err), apperrors.KindAuthentication)
	}

	// Cache was cleared; the next caller triggers a fresh fetch
	var fetches int32
	working := func(ctx context.Context) (string, time.Duration, error) {
		atomic.AddInt32(&fetches, 1)
		return "token-2", time.Hour, nil
	}
	token, err := session.Token(context.Background(), working)
	if err != nil {
		t.Fatalf("Token returned error after recovery: %v", err)
	}
	if token != "token-2" {
		t.Errorf("token = %q; want token-2", token)
	}
	if got := atomic.LoadInt32(&fetches); got != 1 {
		t.Errorf("fetch called %d times; want 1", got)
	}
}

func TestSessionWaiterSeesRefreshFailure(t *testing.T) {
	session := NewGatewaySession()

	started := make(chan struct{})
	var once sync.Once
	slowFailing := func(ctx context.Context) (string, time.Duration, error) {
		once.Do(func() { close(started) })
		time.Sleep(50 * time.Millisecond)
		return "", 0, errors.New("credentials rejected")
	}

	var wg sync.WaitGroup
	wg.Add(1)
	var refresherErr error
	go func() {
		defer wg.Done()
		_, refresherErr = session.Token(context.Background(), slowFailing)
	}()

	<-started
	_, waiterErr := session.Token(context.Background(), slowFailing)
	wg.Wait()

	if !apperrors.IsKind(refresherErr, apperrors.KindAuthentication) {
		t.Errorf("refresher error kind = %v; want %v", apperrors.KindOf(refresherErr), apperrors.KindAuthentication)
	}
	if !apperrors.IsKind(waiterErr, apperrors.KindAuthentication) {
		t.Errorf("waiter error kind = %v; want %v", apperrors.KindOf(waiterErr), apperrors.KindAuthentication)
	}
}
