package cluster

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/porkg/workerbus/internal/emitter"
	"github.com/porkg/workerbus/internal/envelope"
	"github.com/porkg/workerbus/internal/ipc"
	"github.com/porkg/workerbus/internal/lifecycle"
	"github.com/porkg/workerbus/internal/registry"
	"github.com/porkg/workerbus/internal/reserved"
	"github.com/porkg/workerbus/internal/role"
	"github.com/porkg/workerbus/internal/router"
)

type inboundMsg struct {
	id  string
	msg any
}

type exitEvent struct {
	id   string
	info ipc.ExitInfo
}

type errEvent struct {
	id  string
	err error
}

// Supervisor is the master-side engine: it owns the registries of
// spec.md §3 and runs them through a single event-loop goroutine, so
// no locking is needed across Fork/respawn/router/class-listener
// state -- matching spec.md §5's single-threaded cooperative model and
// the "per-process supervisor object" design note of spec.md §9.
type Supervisor struct {
	reg          *registry.Registry
	classEmitter *emitter.Emitter
	handles      map[string]*Handle

	cmds  chan func()
	msgs  chan inboundMsg
	exits chan exitEvent
	errs  chan errEvent

	classMu        sync.Mutex
	classReceivers []string

	baseMaxListeners int
}

// NewSupervisor starts a master engine. Only meaningful in the
// process that is actually the master (role.IsMaster()); callers
// normally reach this indirectly through New/On/Broadcast.
func NewSupervisor() *Supervisor {
	s := &Supervisor{
		reg:              registry.New(),
		classEmitter:     emitter.New(),
		handles:          make(map[string]*Handle),
		cmds:             make(chan func()),
		msgs:             make(chan inboundMsg, 64),
		exits:            make(chan exitEvent, 16),
		errs:             make(chan errEvent, 16),
		baseMaxListeners: emitter.DefaultMaxListeners,
	}
	go s.run()
	return s
}

func (s *Supervisor) run() {
	for {
		select {
		case cmd := <-s.cmds:
			cmd()
		case im := <-s.msgs:
			router.DispatchMaster(im.msg, im.id, s)
		case ev := <-s.exits:
			s.handleExit(ev.id, ev.info)
		case ev := <-s.errs:
			s.handleErr(ev.id, ev.err)
		}
	}
}

// do runs fn on the supervisor's loop goroutine and blocks until it
// completes, giving external callers (Handle methods, user code)
// serialized access without their own locking.
func (s *Supervisor) do(fn func()) {
	done := make(chan struct{})
	s.cmds <- func() {
		fn()
		close(done)
	}
	<-done
}

func (s *Supervisor) watch(ch *ipc.Channel) {
	go func() {
		for {
			msg, err := ch.Proto.Recv()
			if err != nil {
				return
			}
			s.msgs <- inboundMsg{id: ch.ID, msg: msg}
		}
	}()
	go func() {
		info := <-ch.Exit
		s.exits <- exitEvent{id: ch.ID, info: info}
	}()
	go func() {
		for err := range ch.Err {
			s.errs <- errEvent{id: ch.ID, err: err}
		}
	}()
}

func (s *Supervisor) fork(id string, keepAlive, reborn bool) (*ipc.Channel, error) {
	ch, err := ipc.Spawn(id, role.WorkerArgs(id))
	if err != nil {
		return nil, err
	}
	s.reg.Pids[ch.PID] = &registry.PidRecord{ID: id, KeepAlive: keepAlive, Reborn: reborn}
	s.watch(ch)
	s.onChildOnline(id, ch)
	return ch, nil
}

// onChildOnline implements spec.md §4.4's "on channel online": the
// child's pipe is usable as soon as the fork succeeds in this
// transport, so fork success doubles as the online signal.
func (s *Supervisor) onChildOnline(id string, ch *ipc.Channel) {
	ch.MarkOnline()
	entry := s.reg.Workers[id]
	entry.State = registry.Online
	ch.Send(envelope.Online{ID: id, KeepAlive: entry.KeepAlive})

	rec := s.reg.Pids[ch.PID]
	if rec != nil && !rec.Reborn {
		s.classEmitter.Emit(reserved.Online, s.handles[id])
	}
}

// Spawn forks a new worker under id, keyed by the given keep-alive
// flag, and returns its handle.
func (s *Supervisor) Spawn(id string, keepAlive bool) (*Handle, error) {
	var h *Handle
	var spawnErr error
	s.do(func() {
		if _, exists := s.reg.Workers[id]; exists {
			spawnErr = fmt.Errorf("workerbus: worker %q already exists", id)
			return
		}
		entry := &registry.Entry{ID: id, KeepAlive: keepAlive, State: registry.Connecting, Emitter: emitter.New()}
		s.reg.Workers[id] = entry
		h = newHandle(id, keepAlive, s)
		s.handles[id] = h

		ch, err := s.fork(id, keepAlive, false)
		if err != nil {
			delete(s.reg.Workers, id)
			delete(s.handles, id)
			spawnErr = err
			return
		}
		s.reg.Channels[id] = ch
	})
	return h, spawnErr
}

// Lookup returns the handle for id, if one is currently registered.
func (s *Supervisor) Lookup(id string) (*Handle, bool) {
	var h *Handle
	var ok bool
	s.do(func() { h, ok = s.handles[id] })
	return h, ok
}

func (s *Supervisor) handleExit(id string, info ipc.ExitInfo) {
	entry, ok := s.reg.Workers[id]
	if !ok {
		return
	}
	ch := s.reg.Channels[id]
	keepAlive := entry.KeepAlive
	outcome := lifecycle.Classify(info, keepAlive)

	if ch != nil {
		delete(s.reg.Pids, ch.PID)
	}

	if outcome == lifecycle.OutcomeRespawn {
		newCh, err := s.fork(id, keepAlive, true)
		if err != nil {
			log.Error().Err(err).Str("id", id).Msg("failed to respawn worker")
			s.closeEntry(id, entry)
			return
		}
		s.reg.Channels[id] = newCh
		return
	}

	s.closeEntry(id, entry)
	entry.Emitter.Emit(reserved.Exit, info.Code, info.SignalName())

	fireClassExit := !info.HasCode || info.Code == 0 || !keepAlive
	if fireClassExit {
		s.classEmitter.Emit(reserved.Exit, s.handles[id])
	}
	delete(s.handles, id)
}

// handleErr implements spec.md §7 kind 3: a channel error surfaces
// through the originating handle's own "error" event rather than being
// silently dropped.
func (s *Supervisor) handleErr(id string, err error) {
	log.Error().Err(err).Str("id", id).Msg("child channel error")
	if entry, ok := s.reg.Workers[id]; ok {
		entry.Emitter.Emit(reserved.Error, err)
	}
}

func (s *Supervisor) closeEntry(id string, entry *registry.Entry) {
	entry.State = registry.Closed
	s.reg.Remove(id)
}

func (s *Supervisor) snapshotWorkers() []Info {
	online := s.reg.Online()
	infos := make([]Info, 0, len(online))
	for _, e := range online {
		infos = append(infos, Info{ID: e.ID, KeepAlive: e.KeepAlive, State: e.State})
	}
	return infos
}

// --- router.MasterSink ---

func (s *Supervisor) Transmit(receivers []string, event string, data []any) {
	for _, rid := range receivers {
		if ch := s.reg.Channels[rid]; ch != nil {
			ch.Send(envelope.User{Event: event, Data: data})
		}
	}
}

func (s *Supervisor) Broadcast(event string, data []any) {
	for _, ch := range s.reg.Channels {
		ch.Send(envelope.User{Event: event, Data: data})
	}
}

func (s *Supervisor) RespondGetWorkers(fromID, correlationID string) {
	ch := s.reg.Channels[fromID]
	if ch == nil {
		return
	}
	ch.Send(envelope.GetWorkersResp{
		CorrelationID: correlationID,
		Workers:       toWorkerInfos(s.snapshotWorkers()),
	})
}

func (s *Supervisor) DeliverUser(fromID, event string, data []any) {
	entry, ok := s.reg.Workers[fromID]
	if !ok {
		return
	}
	entry.Emitter.Emit(event, data...)
}

func toWorkerInfos(infos []Info) []envelope.WorkerInfo {
	out := make([]envelope.WorkerInfo, len(infos))
	for i, inf := range infos {
		out[i] = envelope.WorkerInfo{ID: inf.ID, KeepAlive: inf.KeepAlive, State: inf.State.String()}
	}
	return out
}

// --- endpoint (consumed by Handle) ---

func (s *Supervisor) emitterFor(id string) *emitter.Emitter {
	var em *emitter.Emitter
	s.do(func() {
		if entry, ok := s.reg.Workers[id]; ok {
			em = entry.Emitter
			return
		}
		em = emitter.New()
	})
	return em
}

func (s *Supervisor) emitSelf(id, event string, data []any) bool {
	s.do(func() {
		if ch := s.reg.Channels[id]; ch != nil {
			ch.Send(envelope.User{Event: event, Data: data})
		}
	})
	return true
}

func (s *Supervisor) emitTransmit(receivers []string, event string, data []any) bool {
	s.do(func() { s.Transmit(receivers, event, data) })
	return true
}

func (s *Supervisor) emitBroadcast(_ string, event string, data []any) bool {
	s.do(func() { s.Broadcast(event, data) })
	return true
}

func (s *Supervisor) exitWorker(id string) error {
	var err error
	s.do(func() {
		ch := s.reg.Channels[id]
		if ch == nil {
			err = fmt.Errorf("workerbus: worker %q has no live channel", id)
			return
		}
		err = ch.Kill()
	})
	return err
}

func (s *Supervisor) rebootWorker(id string) error {
	var err error
	s.do(func() {
		entry, ok := s.reg.Workers[id]
		if !ok {
			err = fmt.Errorf("workerbus: worker %q does not exist", id)
			return
		}
		ch := s.reg.Channels[id]
		if ch == nil {
			err = fmt.Errorf("workerbus: worker %q has no live channel", id)
			return
		}
		entry.State = registry.Closed
		ch.Send(envelope.Reboot{})
	})
	return err
}

// getWorkers returns the live *Handle for every online worker,
// reusing the same handles this.handles already holds rather than
// flattening them to serializable descriptors, per spec.md:138.
func (s *Supervisor) getWorkers(cb func([]*Handle, error)) {
	var handles []*Handle
	s.do(func() {
		online := s.reg.Online()
		handles = make([]*Handle, 0, len(online))
		for _, e := range online {
			if h, ok := s.handles[e.ID]; ok {
				handles = append(handles, h)
			}
		}
	})
	cb(handles, nil)
}

func (s *Supervisor) setMaxListeners(id string, n int) {
	s.do(func() {
		if entry, ok := s.reg.Workers[id]; ok {
			entry.Emitter.SetMaxListeners(n)
		}
		s.recomputeClusterLimit()
	})
}

// recomputeClusterLimit implements spec.md §5's max-listeners
// coordination: the cluster-level limit tracks a baseline (for the
// class-level online/exit subscriptions) plus the sum of every
// handle's own limit.
func (s *Supervisor) recomputeClusterLimit() {
	total := s.baseMaxListeners
	for _, entry := range s.reg.Workers {
		total += entry.Emitter.MaxListeners()
	}
	s.classEmitter.SetMaxListeners(total)
}

// --- class-level façade (C7), master side ---

func (s *Supervisor) onOnline(fn func(h *Handle)) {
	s.classEmitter.On(reserved.Online, func(args ...any) { fn(args[0].(*Handle)) })
}

func (s *Supervisor) onExit(fn func(h *Handle)) {
	s.classEmitter.On(reserved.Exit, func(args ...any) { fn(args[0].(*Handle)) })
}

// ClassTo stores a one-shot receiver set for the next class-level
// Emit, mirroring Handle.To at the class level (spec.md §4.7).
func (s *Supervisor) ClassTo(receivers ...any) *Supervisor {
	s.classMu.Lock()
	s.classReceivers = flattenIDs(receivers)
	s.classMu.Unlock()
	return s
}

func (s *Supervisor) takeClassReceivers() []string {
	s.classMu.Lock()
	defer s.classMu.Unlock()
	r := s.classReceivers
	s.classReceivers = nil
	return r
}

// ClassEmit routes event(data...) to the receiver set stored by the
// preceding ClassTo call.
func (s *Supervisor) ClassEmit(event string, data ...any) bool {
	receivers := s.takeClassReceivers()
	if reserved.IsReserved(event) || len(receivers) == 0 {
		return false
	}
	return s.emitTransmit(receivers, event, data)
}

// ClassBroadcast fans event(data...) out to every worker.
func (s *Supervisor) ClassBroadcast(event string, data ...any) bool {
	if reserved.IsReserved(event) {
		return false
	}
	return s.emitBroadcast("", event, data)
}

// GetWorkers resolves to the current online worker roster.
func (s *Supervisor) GetWorkers(cb func([]*Handle, error)) {
	s.getWorkers(cb)
}
