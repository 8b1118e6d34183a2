package scanning

import (
	"slices"
	"sync"
)

// Phase is the orchestrator state of the current run.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseDiscovering    Phase = "discovering"
	PhasePortScanning   Phase = "port_scanning"
	PhaseServiceProbing Phase = "service_probing"
	PhaseComplete       Phase = "complete"
)

// StateSnapshot is the read-only view served by /state.
type StateSnapshot struct {
	Scanning    bool     `json:"scanning"`
	CurrentHost *string  `json:"current_host"`
	ActiveHosts []string `json:"active_hosts"`
	ScanID      string   `json:"scan_id,omitempty"`
	Phase       Phase    `json:"phase"`
}

// StateTracker holds the process-wide scan state. It outlives individual
// runs and is safe for concurrent use.
type StateTracker struct {
	mu          sync.RWMutex
	scanning    bool
	currentHost string
	active      map[string]struct{}
	scanID      string
	phase       Phase
}

// NewStateTracker returns an idle tracker.
func NewStateTracker() *StateTracker {
	return &StateTracker{
		active: make(map[string]struct{}),
		phase:  PhaseIdle,
	}
}

// Begin marks a run as started.
func (t *StateTracker) Begin(scanID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scanning = true
	t.scanID = scanID
	t.currentHost = ""
	clear(t.active)
	t.phase = PhaseDiscovering
}

// SetPhase records the current pipeline phase.
func (t *StateTracker) SetPhase(p Phase) {
	t.mu.Lock()
	t.phase = p
	t.mu.Unlock()
}

// Dispatch records ip as the most recently dispatched host and adds it to
// the in-flight set.
func (t *StateTracker) Dispatch(ip string) {
	t.mu.Lock()
	t.currentHost = ip
	t.active[ip] = struct{}{}
	t.mu.Unlock()
}

// SetCurrentHost records ip as the host being worked on without marking it in flight.
func (t *StateTracker) SetCurrentHost(ip string) {
	t.mu.Lock()
	t.currentHost = ip
	t.mu.Unlock()
}

// Finish removes ip from the in-flight set.
func (t *StateTracker) Finish(ip string) {
	t.mu.Lock()
	delete(t.active, ip)
	t.mu.Unlock()
}

// Reset returns the tracker to idle.
func (t *StateTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scanning = false
	t.currentHost = ""
	t.scanID = ""
	clear(t.active)
	t.phase = PhaseIdle
}

// Snapshot returns a copy of the current state.
func (t *StateTracker) Snapshot() StateSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := StateSnapshot{
		Scanning:    t.scanning,
		ActiveHosts: make([]string, 0, len(t.active)),
		ScanID:      t.scanID,
		Phase:       t.phase,
	}
	if t.currentHost != "" {
		ip := t.currentHost
		snap.CurrentHost = &ip
	}
	for ip := range t.active {
		snap.ActiveHosts = append(snap.ActiveHosts, ip)
	}
	slices.SortFunc(snap.ActiveHosts, CompareIP)
	return snap
}
