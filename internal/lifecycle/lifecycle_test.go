package lifecycle_test

import (
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/porkg/workerbus/internal/ipc"
	"github.com/porkg/workerbus/internal/lifecycle"
)

func TestClassifyRebootSentinelAlwaysRespawns(t *testing.T) {
	info := ipc.ExitInfo{HasCode: true, Code: lifecycle.RebootSentinel}
	assert.Equal(t, lifecycle.OutcomeRespawn, lifecycle.Classify(info, false))
	assert.Equal(t, lifecycle.OutcomeRespawn, lifecycle.Classify(info, true))
}

func TestClassifyAccidentalUnderKeepAlive(t *testing.T) {
	nonZero := ipc.ExitInfo{HasCode: true, Code: 1}
	assert.Equal(t, lifecycle.OutcomeRespawn, lifecycle.Classify(nonZero, true))

	killed := ipc.ExitInfo{HasSignal: true, Signal: syscall.SIGKILL}
	assert.Equal(t, lifecycle.OutcomeRespawn, lifecycle.Classify(killed, true))
}

func TestClassifyTerminalWithoutKeepAlive(t *testing.T) {
	info := ipc.ExitInfo{HasCode: true, Code: 1}
	assert.Equal(t, lifecycle.OutcomeTerminal, lifecycle.Classify(info, false))
}

func TestClassifyCleanExitUnderKeepAliveIsTerminal(t *testing.T) {
	info := ipc.ExitInfo{HasCode: true, Code: 0}
	assert.Equal(t, lifecycle.OutcomeTerminal, lifecycle.Classify(info, true))
}

func TestClassifyNonKillSignalUnderKeepAliveIsTerminal(t *testing.T) {
	info := ipc.ExitInfo{HasSignal: true, Signal: syscall.SIGTERM}
	assert.Equal(t, lifecycle.OutcomeTerminal, lifecycle.Classify(info, true))
}
