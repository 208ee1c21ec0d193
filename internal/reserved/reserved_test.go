package reserved_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/porkg/workerbus/internal/reserved"
)

func TestIsLifecycle(t *testing.T) {
	assert.True(t, reserved.IsLifecycle("online"))
	assert.True(t, reserved.IsLifecycle("error"))
	assert.True(t, reserved.IsLifecycle("exit"))
	assert.False(t, reserved.IsLifecycle("hello"))
}

func TestIsControl(t *testing.T) {
	assert.True(t, reserved.IsControl(reserved.Transmit))
	assert.True(t, reserved.IsControl(reserved.Broadcast))
	assert.True(t, reserved.IsControl(reserved.Reboot))
	assert.True(t, reserved.IsControl(reserved.GetWorkers))
	assert.True(t, reserved.IsControl(reserved.OnlineBootstrap))
	assert.False(t, reserved.IsControl("hello"))
	assert.False(t, reserved.IsControl("--"))
}

func TestIsReserved(t *testing.T) {
	names := []string{
		reserved.Online, reserved.Error, reserved.Exit,
		reserved.Transmit, reserved.Broadcast, reserved.Reboot,
		reserved.GetWorkers, reserved.OnlineBootstrap,
	}
	for _, n := range names {
		assert.True(t, reserved.IsReserved(n), "expected %q to be reserved", n)
	}
	assert.False(t, reserved.IsReserved("hello"))
	assert.False(t, reserved.IsReserved("ping"))
}
