package orchestrator

import (
	"sync"
	"time"

	"cycled/internal/catalog"
)

// WarmSlot is a size-1 cache of the last role whose model is resident in
// the inference runtime. Re-invoking the warm role costs no reload; any
// other role evicts it and the reload latency is recorded as a switch.
type WarmSlot struct {
	mu sync.Mutex

	role   catalog.Role
	warm   bool
	hits   int64
	misses int64

	switchTotal time.Duration
}

// NewWarmSlot returns an empty slot: the first Touch is always a miss.
func NewWarmSlot() *WarmSlot {
	return &WarmSlot{}
}

// Touch records an invocation of role. It returns true when the role was
// already warm (a hit). On a miss the slot adopts the new role and the
// reported load latency is folded into the switch statistics.
func (w *WarmSlot) Touch(role catalog.Role, loadLatency time.Duration) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.warm && w.role == role {
		w.hits++
		return true
	}
	w.misses++
	w.role = role
	w.warm = true
	w.switchTotal += loadLatency
	return false
}

// Role returns the currently warm role, or ("", false) when the slot is
// empty.
func (w *WarmSlot) Role() (catalog.Role, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.role, w.warm
}

// Invalidate empties the slot, forcing the next Touch to miss.
func (w *WarmSlot) Invalidate() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.warm = false
	w.role = ""
}

// SwitchCount reports the number of misses, i.e. model loads.
func (w *WarmSlot) SwitchCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.misses
}

// HitCount reports the number of warm re-invocations.
func (w *WarmSlot) HitCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hits
}

// AverageSwitchTime is the mean load latency over all misses. Zero when
// no switch has happened yet.
func (w *WarmSlot) AverageSwitchTime() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.misses == 0 {
		return 0
	}
	return w.switchTotal / time.Duration(w.misses)
}
