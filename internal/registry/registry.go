// Package registry holds the master-side bookkeeping of spec.md §3:
// WorkerID <-> Entry <-> child PID <-> channel, plus the reborn flag
// used to suppress spurious lifecycle notifications after a respawn.
//
// Registry has no internal locking. Per spec.md §5 ("single-threaded
// cooperative... there is no shared mutable state across processes"),
// all mutation is confined to the supervisor's single event-loop
// goroutine; Registry itself is a plain data structure, not an actor.
package registry

import (
	"github.com/porkg/workerbus/internal/emitter"
	"github.com/porkg/workerbus/internal/ipc"
)

// State is a worker's lifecycle state (spec.md §3).
type State int

const (
	Connecting State = iota
	Online
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Online:
		return "online"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// PidRecord is the master-only record keyed by child PID (spec.md
// §3), used to resolve inbound lifecycle events back to the logical
// worker and to suppress duplicate online/exit notifications for
// respawned workers.
type PidRecord struct {
	ID        string
	KeepAlive bool
	Reborn    bool
}

// Entry is the master-side WorkerHandle state: everything about a
// worker ID except the live channel, which lives separately in
// Registry.Channels. Remove deletes both together.
type Entry struct {
	ID        string
	KeepAlive bool
	State     State
	Emitter   *emitter.Emitter
}

// Registry holds the master-side maps of spec.md §3; each Supervisor
// owns its own Registry.
type Registry struct {
	Workers  map[string]*Entry
	Channels map[string]*ipc.Channel
	Pids     map[int]*PidRecord
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		Workers:  make(map[string]*Entry),
		Channels: make(map[string]*ipc.Channel),
		Pids:     make(map[int]*PidRecord),
	}
}

// Online returns every Entry currently in the Online state. Order is
// unspecified.
func (r *Registry) Online() []*Entry {
	out := make([]*Entry, 0, len(r.Workers))
	for _, e := range r.Workers {
		if e.State == Online {
			out = append(out, e)
		}
	}
	return out
}

// ByPID resolves a child PID back to its PidRecord.
func (r *Registry) ByPID(pid int) (*PidRecord, bool) {
	rec, ok := r.Pids[pid]
	return rec, ok
}

// Remove deletes id from Workers and Channels. Callers must already
// have set the Entry's state to Closed (invariant 3).
func (r *Registry) Remove(id string) {
	delete(r.Workers, id)
	delete(r.Channels, id)
}
