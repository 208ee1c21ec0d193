package emitter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/porkg/workerbus/internal/emitter"
)

func TestOnOrderingAndArgs(t *testing.T) {
	e := emitter.New()
	var order []string
	e.On("greet", func(args ...any) {
		order = append(order, "first")
		require.Len(t, args, 2)
		assert.Equal(t, "hi", args[0])
	})
	e.On("greet", func(args ...any) {
		order = append(order, "second")
	})

	ok := e.Emit("greet", "hi", 42)
	assert.True(t, ok)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestEmitWithNoListenersReturnsFalse(t *testing.T) {
	e := emitter.New()
	assert.False(t, e.Emit("nobody-home"))
}

func TestOnceFiresExactlyOnce(t *testing.T) {
	e := emitter.New()
	calls := 0
	e.Once("boot", func(args ...any) { calls++ })

	e.Emit("boot")
	e.Emit("boot")

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, e.Count("boot"))
}

func TestOnPreservesOtherListenersWhenOnceFires(t *testing.T) {
	e := emitter.New()
	var persistentCalls, onceCalls int
	e.On("x", func(args ...any) { persistentCalls++ })
	e.Once("x", func(args ...any) { onceCalls++ })

	e.Emit("x")
	e.Emit("x")

	assert.Equal(t, 2, persistentCalls)
	assert.Equal(t, 1, onceCalls)
	assert.Equal(t, 1, e.Count("x"))
}

func TestSetMaxListenersDoesNotDropRegistrations(t *testing.T) {
	e := emitter.New()
	e.SetMaxListeners(1)
	e.On("x", func(args ...any) {})
	e.On("x", func(args ...any) {})
	assert.Equal(t, 2, e.Count("x"))
}
