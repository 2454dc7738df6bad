package services

import (
	"context"
	"sync"
	"time"

	"kodisha_app/internal/apperrors"
)

// tokenSafetyMargin is how long before expiry a cached token is considered
// stale
const tokenSafetyMargin = 30 * time.Second

// GatewaySession owns the process-lifetime cached bearer credential. A token
// is reused until it nears expiry; at most one refresh is in flight at a
// time, and concurrent callers wait on the in-flight refresh instead of
// issuing duplicates.
type GatewaySession struct {
	mu       sync.Mutex
	token    string
	expiry   time.Time
	inflight chan struct{}
}

func NewGatewaySession() *GatewaySession {
	return &GatewaySession{}
}

// Token returns a valid bearer credential, calling fetch to refresh the
// cache when needed. fetch returns the token and its time-to-live. On refresh
// failure the cached state is cleared and every waiter gets an
// AuthenticationError; callers do not retry automatically.
func (s *GatewaySession) Token(ctx context.Context, fetch func(ctx context.Context) (string, time.Duration, error)) (string, error) {
	s.mu.Lock()
	if s.fresh() {
		token := s.token
		s.mu.Unlock()
		return token, nil
	}

	if s.inflight != nil {
		// Another caller is refreshing; wait for it to finish.
		done := s.inflight
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return "", apperrors.Wrap(apperrors.KindAuthentication, "token acquisition canceled", ctx.Err())
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.fresh() {
			return s.token, nil
		}
		return "", apperrors.New(apperrors.KindAuthentication, "token refresh failed")
	}

	done := make(chan struct{})
	s.inflight = done
	s.mu.Unlock()

	token, ttl, err := fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight = nil
	defer close(done)
	if err != nil {
		s.token = ""
		s.expiry = time.Time{}
		return "", apperrors.Wrap(apperrors.KindAuthentication, "failed to acquire access token", err)
	}
	s.token = token
	s.expiry = time.Now().Add(ttl)
	return token, nil
}

// Invalidate drops the cached token so the next caller refreshes
func (s *GatewaySession) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expiry = time.Time{}
}

// fresh reports whether the cached token is still usable; callers hold s.mu
func (s *GatewaySession) fresh() bool {
	return s.token != "" && time.Now().Before(s.expiry.Add(-tokenSafetyMargin))
}
