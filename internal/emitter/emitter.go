// Package emitter is the ordered-listener-list primitive behind every
// Worker handle and the class-level façade. It is the Go-idiomatic
// equivalent of the JS EventEmitter the original sfn-worker leans on:
// a map from event name to an ordered slice of callbacks, with
// one-shot registration and a soft listener-count ceiling. Modeled
// after the mutex-guarded dispatch map style used throughout the
// wider pack's bus implementations.
package emitter

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Listener receives the positional arguments passed to Emit.
type Listener func(args ...any)

// DefaultMaxListeners mirrors Node's EventEmitter default: past this
// many listeners for a single event, a warning is logged (never an
// error -- the limit is a leak detector, not an enforcement).
const DefaultMaxListeners = 10

type registration struct {
	fn   Listener
	once bool
}

// Emitter is a single ID's listener table. It is safe for concurrent
// use, though in this module all mutation is expected to be routed
// through a single supervisor loop goroutine per §5's single-threaded
// model.
type Emitter struct {
	mu        sync.Mutex
	listeners map[string][]*registration
	max       int
}

// New returns an empty Emitter with the default max-listeners ceiling.
func New() *Emitter {
	return &Emitter{
		listeners: make(map[string][]*registration),
		max:       DefaultMaxListeners,
	}
}

// On registers fn to be called every time event fires, in
// registration order relative to other listeners of the same event.
func (e *Emitter) On(event string, fn Listener) {
	e.add(event, fn, false)
}

// Once registers fn to fire at most once: it is removed from the
// listener list the first time event fires, even if Emit is called
// re-entrantly from within fn.
func (e *Emitter) Once(event string, fn Listener) {
	e.add(event, fn, true)
}

func (e *Emitter) add(event string, fn Listener, once bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	list := append(e.listeners[event], &registration{fn: fn, once: once})
	e.listeners[event] = list
	if len(list) > e.max {
		log.Warn().
			Str("event", event).
			Int("count", len(list)).
			Int("max", e.max).
			Msg("possible listener leak detected")
	}
}

// Emit invokes every current listener of event with args, in
// registration order. Listeners registered via Once are stripped from
// the list before any listener runs. It reports whether at least one
// listener was invoked.
func (e *Emitter) Emit(event string, args ...any) bool {
	e.mu.Lock()
	list := e.listeners[event]
	if len(list) == 0 {
		e.mu.Unlock()
		return false
	}
	snapshot := make([]*registration, len(list))
	copy(snapshot, list)
	remaining := make([]*registration, 0, len(list))
	for _, reg := range list {
		if !reg.once {
			remaining = append(remaining, reg)
		}
	}
	e.listeners[event] = remaining
	e.mu.Unlock()

	for _, reg := range snapshot {
		reg.fn(args...)
	}
	return true
}

// SetMaxListeners adjusts the soft warning ceiling for this emitter.
func (e *Emitter) SetMaxListeners(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.max = n
}

// MaxListeners returns the current soft warning ceiling.
func (e *Emitter) MaxListeners() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.max
}

// Count returns the number of listeners currently registered for
// event, for diagnostics and tests.
func (e *Emitter) Count(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[event])
}
