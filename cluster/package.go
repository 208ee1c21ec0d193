package cluster

import (
	"sync"

	"github.com/porkg/workerbus/internal/reserved"
	"github.com/porkg/workerbus/internal/role"
)

var (
	bootstrapOnce sync.Once
	defaultSup    *Supervisor
	defaultEng    *WorkerEngine
	bootstrapErr  error
)

// bootstrap lazily brings up the one engine this process needs: a
// Supervisor if this is the master, a WorkerEngine if this is a
// worker. It is the package-level counterpart of explicitly
// constructing a Supervisor/WorkerEngine, provided so the class-level
// façade (C7) can work the way spec.md describes it -- as statics that
// behave differently depending on which role the current process
// turned out to have.
func bootstrap() error {
	bootstrapOnce.Do(func() {
		if role.IsMaster() {
			defaultSup = NewSupervisor()
			return
		}
		defaultEng, bootstrapErr = NewWorkerEngine()
	})
	return bootstrapErr
}

// New forks a worker under id (master-only).
func New(id string, keepAlive bool) (*Handle, error) {
	if err := bootstrap(); err != nil {
		return nil, err
	}
	if defaultSup == nil {
		return nil, usageErrorf("New", "only the master process can spawn workers")
	}
	return defaultSup.Spawn(id, keepAlive)
}

// Of looks up an existing handle by ID (master-only).
func Of(id string) (*Handle, bool) {
	if bootstrap() != nil || defaultSup == nil {
		return nil, false
	}
	return defaultSup.Lookup(id)
}

// On registers a class-level lifecycle listener. Only "online" and
// "exit" are accepted, per spec.md §4.7.
func On(event string, fn func(h *Handle)) error {
	if event != reserved.Online && event != reserved.Exit {
		return usageErrorf("On", `class-level On only accepts "online" or "exit"`)
	}
	if err := bootstrap(); err != nil {
		return err
	}
	var onOnline, onExit func(func(h *Handle))
	if defaultSup != nil {
		onOnline, onExit = defaultSup.onOnline, defaultSup.onExit
	} else {
		onOnline, onExit = defaultEng.onOnline, defaultEng.onExit
	}
	if event == reserved.Online {
		onOnline(fn)
	} else {
		onExit(fn)
	}
	return nil
}

// Target is the class-level counterpart of Handle.To(...): it stores a
// receiver set for the next Emit, master-only.
type Target struct {
	sup *Supervisor
}

// To stores a one-shot receiver set, master-only; calling it from a
// worker returns a Target whose Emit always fails with a UsageError.
func To(receivers ...any) *Target {
	if bootstrap() != nil || defaultSup == nil {
		return &Target{}
	}
	defaultSup.ClassTo(receivers...)
	return &Target{sup: defaultSup}
}

// Emit routes event(data...) to the receiver set stored by the
// preceding To call.
func (t *Target) Emit(event string, data ...any) (bool, error) {
	if t.sup == nil {
		return false, usageErrorf("Emit", "class-level Emit/To is master-only")
	}
	return t.sup.ClassEmit(event, data...), nil
}

// Broadcast fans event(data...) out to every worker (master-only).
func Broadcast(event string, data ...any) (bool, error) {
	if err := bootstrap(); err != nil {
		return false, err
	}
	if defaultSup == nil {
		return false, usageErrorf("Broadcast", "class-level Broadcast is master-only")
	}
	return defaultSup.ClassBroadcast(event, data...), nil
}

// GetWorkers resolves to the current online worker roster, from
// either role.
func GetWorkers(cb func([]*Handle, error)) error {
	if err := bootstrap(); err != nil {
		cb(nil, err)
		return err
	}
	if defaultSup != nil {
		defaultSup.GetWorkers(cb)
		return nil
	}
	defaultEng.GetWorkers(cb)
	return nil
}

// GetWorker resolves to the local worker's own handle (worker-only).
func GetWorker(cb func(*Handle, error)) error {
	if err := bootstrap(); err != nil {
		cb(nil, err)
		return err
	}
	if defaultEng == nil {
		err := usageErrorf("GetWorker", "GetWorker is worker-only")
		cb(nil, err)
		return err
	}
	defaultEng.GetWorker(cb)
	return nil
}

// IsMaster and IsWorker re-export the process-role probe (C1) for
// callers deciding how to use the rest of the package.
func IsMaster() bool { return role.IsMaster() }
func IsWorker() bool { return role.IsWorker() }
