// Package role implements the process-role probe (C1): a constant,
// process-lifetime answer to "am I the master or a worker", derived
// from how the process was invoked -- the same re-entry flag
// convention the teacher uses in internal/worker/linux.go
// (isWorker/isJob via os.Args).
package role

import "os"

const workerFlag = "--workerbus-worker"

// WorkerID returns the worker ID this process was re-exec'd with, and
// true if this process was launched as a worker (i.e. via Args built
// by the lifecycle controller's fork step). A bare master process
// returns ("", false).
func WorkerID(args []string) (string, bool) {
	if len(args) == 3 && args[1] == workerFlag {
		return args[2], true
	}
	return "", false
}

// WorkerArgs builds the argv used to re-exec the current executable as
// a worker carrying the given ID.
func WorkerArgs(id string) []string {
	return []string{workerFlag, id}
}

// IsMaster and IsWorker are computed once from os.Args at package
// init and are constant for the remaining lifetime of the process.
var (
	selfID   string
	isWorker bool
)

func init() {
	selfID, isWorker = WorkerID(os.Args)
}

// IsMaster reports whether this process is the supervisor.
func IsMaster() bool { return !isWorker }

// IsWorker reports whether this process is a spawned child.
func IsWorker() bool { return isWorker }

// SelfID returns this process's own worker ID. Valid only when
// IsWorker() is true.
func SelfID() string { return selfID }
