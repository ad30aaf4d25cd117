package gateway

import "sync"

// admissionCounter is the mutex-guarded in-flight counter behind fail-fast
// admission control. The check against the cap and the increment happen as
// one atomic step; release is unconditional.
type admissionCounter struct {
	mu       sync.Mutex
	inFlight int
}

// acquire admits the caller if the counter is below cap. cap 0 means
// unconstrained.
func (a *admissionCounter) acquire(cap int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if cap > 0 && a.inFlight >= cap {
		return false
	}
	a.inFlight++
	return true
}

func (a *admissionCounter) release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inFlight--
}

func (a *admissionCounter) current() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inFlight
}
