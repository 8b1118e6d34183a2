// Package scanning holds the scan aggregate and the pieces shared by every
// pipeline stage.
//
// # Model
//
// A Scan owns an ordered list of Hosts, and every Host owns its open Ports.
// Host IPs are unique within a Scan. The Scan is in progress until End is set.
//
// # Run context
//
// Each run gets a ScanContext. Stages mutate the aggregate only through
// ScanContext.Update, which applies the mutation and persists the snapshot
// while holding one lock, so a reader of the store never sees a half-applied
// change. The context's logger also tees Info and above into the run's
// LogStreamBroker, which is what HTTP clients read.
//
// # Probing
//
// NetworkProber abstracts nmap. NmapProber runs the ping sweep and the
// per-host service scan; PortScanStage fans the latter out over a worker pool
// capped at config.MaxPortWorkers.
//
// # State
//
// StateTracker is the process-wide view served by /state. It records the
// last dispatched host plus the set of hosts currently in flight.
package scanning
