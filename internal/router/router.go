// Package router implements the event router (C5): it demultiplexes
// decoded inbound envelopes into the actions spec.md §4.5 describes,
// without itself touching the registry or child channels -- those
// belong to whichever Sink the cluster package's supervisor loop
// passes in, keeping this package pure and easy to test in isolation.
package router

import "github.com/porkg/workerbus/internal/envelope"

// MasterSink receives the actions the master-side router produces.
type MasterSink interface {
	// Transmit routes event(data...) to every worker ID in receivers.
	Transmit(receivers []string, event string, data []any)
	// Broadcast fans event(data...) out to every online worker,
	// including fromID.
	Broadcast(event string, data []any)
	// RespondGetWorkers answers a get-workers request from fromID.
	RespondGetWorkers(fromID, correlationID string)
	// DeliverUser dispatches a user event to the master-side handle
	// for fromID.
	DeliverUser(fromID, event string, data []any)
}

// DispatchMaster implements spec.md §4.5's "master-side inbound
// demultiplex" for one decoded message arriving from the child
// identified by fromID.
func DispatchMaster(msg any, fromID string, sink MasterSink) {
	switch m := msg.(type) {
	case *envelope.Transmit:
		sink.Transmit(m.Receivers, m.Event, m.Data)
	case *envelope.Broadcast:
		sink.Broadcast(m.Event, m.Data)
	case *envelope.GetWorkersReq:
		sink.RespondGetWorkers(fromID, m.CorrelationID)
	case *envelope.User:
		sink.DeliverUser(fromID, m.Event, m.Data)
	}
}

// WorkerSink receives the actions the worker-side router produces.
type WorkerSink interface {
	// Bootstrap materializes the local handle the first time "online"
	// arrives.
	Bootstrap(id string, keepAlive bool)
	// Deliver re-emits event(data...) on the local process bus.
	Deliver(event string, data []any)
	// ResolveGetWorkers completes a pending get-workers request.
	ResolveGetWorkers(resp *envelope.GetWorkersResp)
	// Reboot terminates this process with the reboot sentinel code.
	Reboot()
}

// DispatchWorker implements spec.md §4.5's "worker-side inbound" rule
// for one decoded message arriving from the master.
func DispatchWorker(msg any, sink WorkerSink) {
	switch m := msg.(type) {
	case *envelope.Online:
		sink.Bootstrap(m.ID, m.KeepAlive)
	case *envelope.User:
		sink.Deliver(m.Event, m.Data)
	case *envelope.GetWorkersResp:
		sink.ResolveGetWorkers(m)
	case *envelope.Reboot:
		sink.Reboot()
	}
}
