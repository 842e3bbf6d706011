package libs

import (
	"sync"
	"time"

	"github.com/zekroTJA/timedmap"
)

type requestCounter struct {
	n int
}

// SecurityManager tracks per-identifier request counts over a fixed window.
// Entries expire on their own; a quiet identifier costs nothing.
type SecurityManager struct {
	maxRequests int
	window      time.Duration

	mu       sync.Mutex
	requests *timedmap.TimedMap
}

func NewSecurityManager(maxRequests int, window time.Duration) *SecurityManager {
	if maxRequests <= 0 {
		maxRequests = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return &SecurityManager{
		maxRequests: maxRequests,
		window:      window,
		requests:    timedmap.New(window),
	}
}

// Allow records a request for the identifier and reports whether it is still
// within the window's budget.
func (s *SecurityManager) Allow(identifier string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.requests.GetValue(identifier)
	if v == nil {
		s.requests.Set(identifier, &requestCounter{n: 1}, s.window)
		return true
	}
	counter := v.(*requestCounter)
	counter.n++
	return counter.n <= s.maxRequests
}
