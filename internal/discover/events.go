package discover

import "sync"

// Events carries the two caller-owned notification channels: free-text
// status updates and flood-wait durations in seconds. Either channel may be
// nil. Sends never block; a slow or absent consumer drops messages rather
// than stalling the run.
type Events struct {
	Status    chan<- string
	FloodWait chan<- int
}

// EmitStatus publishes a status message, dropping it if the consumer lags.
func (e Events) EmitStatus(msg string) {
	if e.Status == nil {
		return
	}
	select {
	case e.Status <- msg:
	default:
	}
}

// EmitFloodWait publishes a flood-wait duration in seconds.
func (e Events) EmitFloodWait(seconds int) {
	if e.FloodWait == nil {
		return
	}
	select {
	case e.FloodWait <- seconds:
	default:
	}
}

// Accumulator collects per-run counters so the lead sequence itself stays
// free of shared mutable state. It also enforces the optional max-request
// budget.
type Accumulator struct {
	mu          sync.Mutex
	maxRequests int

	requests   int
	floodWaits int
	found      int
	unsafe     int
	skipped    int
}

// NewAccumulator creates an Accumulator. maxRequests <= 0 means unlimited.
func NewAccumulator(maxRequests int) *Accumulator {
	return &Accumulator{maxRequests: maxRequests}
}

// AllowRequest records an outbound request and reports whether the run is
// still within its request budget.
func (a *Accumulator) AllowRequest() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.maxRequests > 0 && a.requests >= a.maxRequests {
		return false
	}
	a.requests++
	return true
}

// AddFloodWait records one rate-limit event.
func (a *Accumulator) AddFloodWait() {
	a.mu.Lock()
	a.floodWaits++
	a.mu.Unlock()
}

// AddFound records one produced lead.
func (a *Accumulator) AddFound() {
	a.mu.Lock()
	a.found++
	a.mu.Unlock()
}

// AddUnsafe records one lead discarded by the safety filter.
func (a *Accumulator) AddUnsafe() {
	a.mu.Lock()
	a.unsafe++
	a.mu.Unlock()
}

// AddSkipped records one candidate discarded for a missing mandatory field
// or a failed fetch.
func (a *Accumulator) AddSkipped() {
	a.mu.Lock()
	a.skipped++
	a.mu.Unlock()
}

// Snapshot returns the current counter values.
func (a *Accumulator) Snapshot() (requests, floodWaits, found, unsafe, skipped int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requests, a.floodWaits, a.found, a.unsafe, a.skipped
}
