// Package cluster is the symmetric event-emitter façade (C6 + C7): a
// Worker handle per ID, and the class-level statics mirroring it, that
// hide whether the calling process is the master or a worker.
package cluster

import (
	"reflect"
	"sync"

	"github.com/porkg/workerbus/internal/emitter"
	"github.com/porkg/workerbus/internal/reserved"
)

// endpoint is the polymorphic backend a Handle defers role-specific
// behavior to -- one implementation running in the master, one in a
// worker -- per spec.md §9's "dynamic dispatch by role" design note.
type endpoint interface {
	emitterFor(id string) *emitter.Emitter
	emitSelf(id, event string, data []any) bool
	emitTransmit(receivers []string, event string, data []any) bool
	emitBroadcast(id, event string, data []any) bool
	exitWorker(id string) error
	rebootWorker(id string) error
	getWorkers(cb func([]*Handle, error))
	setMaxListeners(id string, n int)
}

// Handle is the per-ID façade (C6): the unit of event subscription and
// emission, identical in shape whether this process is the master or
// a worker.
type Handle struct {
	id        string
	keepAlive bool
	ep        endpoint

	mu        sync.Mutex
	receivers []string
}

func newHandle(id string, keepAlive bool, ep endpoint) *Handle {
	return &Handle{id: id, keepAlive: keepAlive, ep: ep}
}

// ID returns this handle's stable worker ID.
func (h *Handle) ID() string { return h.id }

// KeepAlive reports whether this worker respawns after an accidental
// exit.
func (h *Handle) KeepAlive() bool { return h.keepAlive }

// On registers fn for every future occurrence of event on this
// handle. Reserved names behave per spec.md §4.6: error/exit may still
// be registered for (they can be fired internally by the lifecycle
// controller), but emitting them through Emit is always rejected.
func (h *Handle) On(event string, fn Listener) {
	h.ep.emitterFor(h.id).On(event, func(args ...any) { fn(args...) })
}

// Once registers fn to fire at most once.
func (h *Handle) Once(event string, fn Listener) {
	h.ep.emitterFor(h.id).Once(event, func(args ...any) { fn(args...) })
}

// To stores a one-shot receiver set consumed by the next Emit. It
// accepts Handles, ID strings, or a single slice of either, per
// spec.md §4.5.
func (h *Handle) To(receivers ...any) *Handle {
	h.mu.Lock()
	h.receivers = flattenIDs(receivers)
	h.mu.Unlock()
	return h
}

func (h *Handle) takeReceivers() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.receivers
	h.receivers = nil
	return r
}

// Emit sends event(data...) using the current addressing mode: self if
// To was not called since the last Emit, otherwise the stored
// receiver set. Reserved names are always rejected (return false, no
// side effect) per spec.md §4.8.
func (h *Handle) Emit(event string, data ...any) bool {
	receivers := h.takeReceivers()
	if reserved.IsReserved(event) {
		return false
	}
	if len(receivers) == 0 {
		return h.ep.emitSelf(h.id, event, data)
	}
	return h.ep.emitTransmit(receivers, event, data)
}

// Broadcast fans event(data...) out to every worker, including the
// sender. "online" is always rejected; spec.md §4.8.
func (h *Handle) Broadcast(event string, data ...any) bool {
	if reserved.IsReserved(event) {
		return false
	}
	return h.ep.emitBroadcast(h.id, event, data)
}

// Exit terminates the underlying worker process: the master kills its
// child, a worker terminates itself.
func (h *Handle) Exit() error {
	return h.ep.exitWorker(h.id)
}

// Reboot requests a controlled respawn under the same ID: no
// user-visible exit event is fired.
func (h *Handle) Reboot() error {
	return h.ep.rebootWorker(h.id)
}

// GetWorkers asynchronously resolves to the current online worker
// roster, reconstructing a *Handle for every ID other than this one
// (reusing this for self), per spec.md §4.6.
func (h *Handle) GetWorkers(cb func([]*Handle, error)) {
	h.ep.getWorkers(cb)
}

// SetMaxListeners adjusts this handle's listener-count warning
// ceiling.
func (h *Handle) SetMaxListeners(n int) {
	h.ep.setMaxListeners(h.id, n)
}

// flattenIDs normalizes a To(...) call's arguments into a flat slice
// of worker IDs, accepting *Handle, string, or a single slice of
// either, per spec.md §4.5's "flattening a single array argument".
func flattenIDs(args []any) []string {
	if len(args) == 1 {
		if ids, ok := flattenOne(args[0]); ok {
			return ids
		}
	}
	out := make([]string, 0, len(args))
	for _, a := range args {
		ids, ok := flattenOne(a)
		if !ok {
			continue
		}
		out = append(out, ids...)
	}
	return out
}

func flattenOne(a any) ([]string, bool) {
	switch v := a.(type) {
	case string:
		return []string{v}, true
	case *Handle:
		return []string{v.id}, true
	}

	rv := reflect.ValueOf(a)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i).Interface()
		switch v := elem.(type) {
		case string:
			out = append(out, v)
		case *Handle:
			out = append(out, v.id)
		}
	}
	return out, true
}
