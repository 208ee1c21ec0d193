package cluster

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/porkg/workerbus/internal/emitter"
	"github.com/porkg/workerbus/internal/envelope"
	"github.com/porkg/workerbus/internal/ipc"
	"github.com/porkg/workerbus/internal/lifecycle"
	"github.com/porkg/workerbus/internal/reserved"
	"github.com/porkg/workerbus/internal/role"
	"github.com/porkg/workerbus/internal/router"
)

// WorkerEngine is the worker-side counterpart of Supervisor. It holds
// only this process's own record plus whatever peer descriptors
// GetWorkers has resolved, per spec.md §3 ("Worker side holds only its
// own Workers entry... plus WorkerPids[self-pid]").
//
// All worker-side handles -- self and any peers -- share a single
// process-wide listener bus, since spec.md §4.5's worker-side inbound
// rule re-emits every message "on the local process event bus", with
// no per-ID scoping (there is exactly one process to deliver to).
type WorkerEngine struct {
	selfID    string
	keepAlive bool
	self      *ipc.Self

	bus          *emitter.Emitter
	classEmitter *emitter.Emitter

	mu      sync.Mutex
	handles map[string]*Handle

	online     chan struct{}
	onlineOnce sync.Once

	pendingMu sync.Mutex
	pending   map[string]chan *envelope.GetWorkersResp
}

// NewWorkerEngine connects to the master over the inherited channel
// and starts the inbound dispatch loop. Only meaningful in a process
// launched as a worker (role.IsWorker()).
func NewWorkerEngine() (*WorkerEngine, error) {
	self, err := ipc.Connect()
	if err != nil {
		return nil, fmt.Errorf("workerbus: failed to connect worker channel: %w", err)
	}

	e := &WorkerEngine{
		selfID:       role.SelfID(),
		self:         self,
		bus:          emitter.New(),
		classEmitter: emitter.New(),
		handles:      make(map[string]*Handle),
		online:       make(chan struct{}),
		pending:      make(map[string]chan *envelope.GetWorkersResp),
	}

	go e.recvLoop()
	go e.watchTermination()
	return e, nil
}

func (e *WorkerEngine) recvLoop() {
	for {
		msg, err := e.self.Proto.Recv()
		if err != nil {
			e.reportError(fmt.Errorf("worker channel closed: %w", err))
			return
		}
		router.DispatchWorker(msg, e)
	}
}

// watchTermination fires the class-level exit listener when this
// process receives a termination signal, mirroring spec.md §4.7's
// "subscribe to process termination and gate on the same keep-alive
// rule" -- from inside the process being terminated, that rule always
// evaluates true for its own final exit.
func (e *WorkerEngine) watchTermination() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, syscall.SIGINT)
	<-sigs
	e.mu.Lock()
	h := e.handles[e.selfID]
	e.mu.Unlock()
	if h != nil {
		e.classEmitter.Emit(reserved.Exit, h)
	}
	os.Exit(0)
}

func (e *WorkerEngine) ensureHandle(id string, keepAlive bool) *Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	if h, ok := e.handles[id]; ok {
		return h
	}
	h := newHandle(id, keepAlive, e)
	e.handles[id] = h
	return h
}

// --- router.WorkerSink ---

func (e *WorkerEngine) Bootstrap(id string, keepAlive bool) {
	e.selfID = id
	e.keepAlive = keepAlive
	h := e.ensureHandle(id, keepAlive)
	e.onlineOnce.Do(func() {
		close(e.online)
		e.bus.Emit(reserved.OnlineBootstrap, id)
		e.classEmitter.Emit(reserved.Online, h)
	})
}

func (e *WorkerEngine) Deliver(event string, data []any) {
	e.bus.Emit(event, data...)
}

func (e *WorkerEngine) ResolveGetWorkers(resp *envelope.GetWorkersResp) {
	e.pendingMu.Lock()
	ch, ok := e.pending[resp.CorrelationID]
	if ok {
		delete(e.pending, resp.CorrelationID)
	}
	e.pendingMu.Unlock()
	if !ok {
		return
	}
	ch <- resp
}

func (e *WorkerEngine) Reboot() {
	os.Exit(826)
}

// --- endpoint (consumed by Handle) ---

func (e *WorkerEngine) emitterFor(string) *emitter.Emitter {
	return e.bus
}

// reportError implements spec.md §7 kind 3 on the worker side: a
// channel error surfaces through this process's own "error" event
// instead of being silently dropped, mirroring Supervisor.handleErr.
func (e *WorkerEngine) reportError(err error) {
	log.Error().Err(err).Msg("channel error")
	e.bus.Emit(reserved.Error, err)
}

func (e *WorkerEngine) emitSelf(_ string, event string, data []any) bool {
	if err := e.self.Send(envelope.User{ID: e.selfID, Event: event, Data: data}); err != nil {
		e.reportError(err)
	}
	return true
}

func (e *WorkerEngine) emitTransmit(receivers []string, event string, data []any) bool {
	if err := e.self.Send(envelope.Transmit{ID: e.selfID, Receivers: receivers, Event: event, Data: data}); err != nil {
		e.reportError(err)
	}
	return true
}

func (e *WorkerEngine) emitBroadcast(_ string, event string, data []any) bool {
	if err := e.self.Send(envelope.Broadcast{ID: e.selfID, Event: event, Data: data}); err != nil {
		e.reportError(err)
	}
	return true
}

func (e *WorkerEngine) exitWorker(string) error {
	os.Exit(0)
	return nil
}

func (e *WorkerEngine) rebootWorker(string) error {
	os.Exit(lifecycle.RebootSentinel)
	return nil
}

// getWorkers round-trips a request through the master and reconstructs
// a *Handle for every returned ID, reusing e.handles[e.selfID] for self
// rather than rebuilding it, per spec.md:122.
func (e *WorkerEngine) getWorkers(cb func([]*Handle, error)) {
	go func() {
		<-e.online
		corr := uuid.NewString()
		respCh := make(chan *envelope.GetWorkersResp, 1)
		e.pendingMu.Lock()
		e.pending[corr] = respCh
		e.pendingMu.Unlock()

		if err := e.self.Send(envelope.GetWorkersReq{ID: e.selfID, CorrelationID: corr}); err != nil {
			cb(nil, err)
			return
		}
		resp := <-respCh
		handles := make([]*Handle, 0, len(resp.Workers))
		for _, w := range resp.Workers {
			handles = append(handles, e.ensureHandle(w.ID, w.KeepAlive))
		}
		cb(handles, nil)
	}()
}

func (e *WorkerEngine) setMaxListeners(_ string, n int) {
	e.bus.SetMaxListeners(n)
}

// --- class-level façade (C7), worker side ---

func (e *WorkerEngine) onOnline(fn func(h *Handle)) {
	e.classEmitter.On(reserved.Online, func(args ...any) { fn(args[0].(*Handle)) })
}

func (e *WorkerEngine) onExit(fn func(h *Handle)) {
	e.classEmitter.On(reserved.Exit, func(args ...any) { fn(args[0].(*Handle)) })
}

// GetWorker resolves to this process's own handle once bootstrapped.
// Per spec.md §9's open question (a): the source's worker-side
// getWorker reaches for an undefined this.getChannel(resolve); treated
// as a source bug, so GetWorker is exposed through the same
// online-gated mechanism as GetWorkers instead.
func (e *WorkerEngine) GetWorker(cb func(*Handle, error)) {
	go func() {
		<-e.online
		e.mu.Lock()
		h := e.handles[e.selfID]
		e.mu.Unlock()
		cb(h, nil)
	}()
}

// GetWorkers resolves to the current online worker roster as seen from
// inside a worker: it round-trips a request through the master.
func (e *WorkerEngine) GetWorkers(cb func([]*Handle, error)) {
	e.getWorkers(cb)
}
