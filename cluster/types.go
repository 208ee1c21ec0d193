package cluster

import (
	"github.com/porkg/workerbus/internal/registry"
	"github.com/porkg/workerbus/internal/reserved"
)

// State mirrors registry.State as the public worker lifecycle state
// (spec.md §3: connecting, online, closed).
type State = registry.State

const (
	Connecting = registry.Connecting
	Online     = registry.Online
	Closed     = registry.Closed
)

// Listener is the callback type for Handle.On/Once. Arguments passed
// are the positional event data. The class-level On takes a
// func(*Handle) instead.
type Listener func(args ...any)

// EventOnline and EventExit are the only two event names the
// class-level On accepts (spec.md §4.7). EventError is valid on a
// Handle's own On (spec.md §4.6) but not on the class-level On.
const (
	EventOnline = reserved.Online
	EventExit   = reserved.Exit
	EventError  = reserved.Error
)

// Info is the serializable {id, keepAlive, state} worker descriptor
// exchanged with a worker over the wire protocol when it resolves its
// own GetWorkers request (internal/envelope.GetWorkersResp), per
// spec.md §4.5.
type Info struct {
	ID        string
	KeepAlive bool
	State     State
}
