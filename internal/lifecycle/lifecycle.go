// Package lifecycle implements the worker lifecycle controller (C4):
// fork, the connecting -> online transition, exit classification, and
// keep-alive respawn. It is pure decision logic operated by the
// cluster package's single supervisor loop, which owns the actual
// registry mutation and channel I/O -- lifecycle only tells that loop
// what to do.
package lifecycle

import (
	"syscall"

	"github.com/porkg/workerbus/internal/ipc"
)

// RebootSentinel is the exit code meaning "the worker is requesting a
// controlled respawn" (spec.md §6).
const RebootSentinel = 826

// Outcome is what the supervisor loop should do in response to a
// child's exit.
type Outcome int

const (
	// OutcomeRespawn: fork a replacement child under the same ID; do
	// not fire a user-visible exit event.
	OutcomeRespawn Outcome = iota
	// OutcomeTerminal: the worker is done; fire exit(code, signal) and
	// remove it from the registry.
	OutcomeTerminal
)

// Classify implements spec.md §4.4's exit classification:
//  1. reboot sentinel (exit code 826) -> unconditional respawn
//  2. keep-alive && (nonzero code || SIGKILL) -> respawn
//  3. otherwise -> terminal
func Classify(info ipc.ExitInfo, keepAlive bool) Outcome {
	if info.HasCode && info.Code == RebootSentinel {
		return OutcomeRespawn
	}
	accidental := (info.HasCode && info.Code != 0) || (info.HasSignal && info.Signal == syscall.SIGKILL)
	if keepAlive && accidental {
		return OutcomeRespawn
	}
	return OutcomeTerminal
}
