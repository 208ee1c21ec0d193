// Package envelope defines the messages exchanged over the
// master-worker child channel. Each variant is its own Go struct type
// rather than a single tagged union, following the teacher's
// beginMessage/startMessage/quitMessage pattern
// (internal/worker/linux.go) of one wire-tagged type per message
// shape, which the wire package's TagMap already dispatches on
// reflect.Type.
package envelope

// Online is the bootstrap message the master sends a child the
// instant its channel reports "online". Receiving it is what
// materializes the worker-side Workers[id] handle.
type Online struct {
	ID        string
	KeepAlive bool
}

// User carries a plain named event with positional arguments, in
// either direction: master -> worker carries {event, data}; worker ->
// master additionally names the source worker so the master can
// dispatch to the right handle.
type User struct {
	ID    string // empty when master -> worker (receiver is implicit)
	Event string
	Data  []any
}

// Transmit asks the master to re-emit Event/Data to every worker ID in
// Receivers. Only sent worker -> master.
type Transmit struct {
	ID        string // source worker
	Receivers []string
	Event     string
	Data      []any
}

// Broadcast asks the master to fan Event/Data out to every online
// worker, including the sender. Only sent worker -> master.
type Broadcast struct {
	ID    string
	Event string
	Data  []any
}

// GetWorkersReq asks the master for the current online worker roster.
// CorrelationID lets the worker discard a stale response that arrives
// after a respawn.
type GetWorkersReq struct {
	ID            string
	CorrelationID string
}

// WorkerInfo is the serializable projection of a worker handle used in
// GetWorkersResp.
type WorkerInfo struct {
	ID        string
	KeepAlive bool
	State     string
}

// GetWorkersResp answers a GetWorkersReq. Only sent master -> worker.
type GetWorkersResp struct {
	CorrelationID string
	Workers       []WorkerInfo
}

// Reboot tells a worker to terminate with the reboot sentinel exit
// code. It carries no fields, mirroring the teacher's bare
// quitMessage{}.
type Reboot struct{}
