package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/porkg/workerbus/internal/emitter"
)

type fakeEndpoint struct {
	em *emitter.Emitter

	selfCalls      []selfCall
	transmitCalls  []transmitCall
	broadcastCalls []broadcastCall
	exited         []string
	rebooted       []string
	maxListeners   map[string]int
}

type selfCall struct {
	id, event string
	data      []any
}
type transmitCall struct {
	receivers []string
	event     string
	data      []any
}
type broadcastCall struct {
	id, event string
	data      []any
}

func newFakeEndpoint() *fakeEndpoint {
	return &fakeEndpoint{em: emitter.New(), maxListeners: map[string]int{}}
}

func (f *fakeEndpoint) emitterFor(string) *emitter.Emitter { return f.em }

func (f *fakeEndpoint) emitSelf(id, event string, data []any) bool {
	f.selfCalls = append(f.selfCalls, selfCall{id, event, data})
	return true
}

func (f *fakeEndpoint) emitTransmit(receivers []string, event string, data []any) bool {
	f.transmitCalls = append(f.transmitCalls, transmitCall{receivers, event, data})
	return true
}

func (f *fakeEndpoint) emitBroadcast(id, event string, data []any) bool {
	f.broadcastCalls = append(f.broadcastCalls, broadcastCall{id, event, data})
	return true
}

func (f *fakeEndpoint) exitWorker(id string) error {
	f.exited = append(f.exited, id)
	return nil
}

func (f *fakeEndpoint) rebootWorker(id string) error {
	f.rebooted = append(f.rebooted, id)
	return nil
}

func (f *fakeEndpoint) getWorkers(cb func([]*Handle, error)) {
	cb([]*Handle{newHandle("a", false, f), newHandle("b", false, f)}, nil)
}

func (f *fakeEndpoint) setMaxListeners(id string, n int) {
	f.maxListeners[id] = n
}

func TestHandleEmitSelfWhenNoReceivers(t *testing.T) {
	ep := newFakeEndpoint()
	h := newHandle("a", false, ep)

	ok := h.Emit("hello", 1, "x")

	require.True(t, ok)
	require.Len(t, ep.selfCalls, 1)
	assert.Equal(t, "a", ep.selfCalls[0].id)
	assert.Equal(t, "hello", ep.selfCalls[0].event)
	assert.Equal(t, []any{1, "x"}, ep.selfCalls[0].data)
	assert.Empty(t, ep.transmitCalls)
}

func TestHandleToThenEmitTargetsReceiversAndClears(t *testing.T) {
	ep := newFakeEndpoint()
	h := newHandle("a", false, ep)

	h.To("b", "c").Emit("ping", 42)
	require.Len(t, ep.transmitCalls, 1)
	assert.Equal(t, []string{"b", "c"}, ep.transmitCalls[0].receivers)
	assert.Empty(t, ep.selfCalls)

	// receivers are one-shot: the next Emit without To() falls back to self.
	h.Emit("ping", 43)
	assert.Len(t, ep.selfCalls, 1)
	assert.Len(t, ep.transmitCalls, 1)
}

func TestHandleToAcceptsHandlesAndSliceArgument(t *testing.T) {
	ep := newFakeEndpoint()
	peer := newHandle("peer", false, ep)
	h := newHandle("a", false, ep)

	h.To([]any{"b", peer}).Emit("e")
	require.Len(t, ep.transmitCalls, 1)
	assert.Equal(t, []string{"b", "peer"}, ep.transmitCalls[0].receivers)
}

func TestHandleBroadcast(t *testing.T) {
	ep := newFakeEndpoint()
	h := newHandle("a", false, ep)

	ok := h.Broadcast("news", 7)
	require.True(t, ok)
	require.Len(t, ep.broadcastCalls, 1)
	assert.Equal(t, "news", ep.broadcastCalls[0].event)
}

func TestReservedNamesRejectedFromEmitAndBroadcast(t *testing.T) {
	ep := newFakeEndpoint()
	h := newHandle("a", false, ep)

	for _, name := range []string{"online", "error", "exit", "----transmit----", "----broadcast----", "----reboot----", "----get-workers----"} {
		assert.False(t, h.Emit(name), "expected Emit(%q) to be rejected", name)
		assert.False(t, h.Broadcast(name), "expected Broadcast(%q) to be rejected", name)
	}
	assert.Empty(t, ep.selfCalls)
	assert.Empty(t, ep.transmitCalls)
	assert.Empty(t, ep.broadcastCalls)
}

func TestReservedEmitClearsPendingReceivers(t *testing.T) {
	ep := newFakeEndpoint()
	h := newHandle("a", false, ep)

	h.To("b")
	assert.False(t, h.Emit("online"))

	// the receiver set set up before the rejected emit must not leak into
	// the next (legitimate) emit.
	h.Emit("hello")
	require.Len(t, ep.selfCalls, 1)
	assert.Empty(t, ep.transmitCalls)
}

func TestHandleExitAndReboot(t *testing.T) {
	ep := newFakeEndpoint()
	h := newHandle("a", false, ep)

	require.NoError(t, h.Exit())
	require.NoError(t, h.Reboot())
	assert.Equal(t, []string{"a"}, ep.exited)
	assert.Equal(t, []string{"a"}, ep.rebooted)
}

func TestHandleOnDeliversViaEndpointEmitter(t *testing.T) {
	ep := newFakeEndpoint()
	h := newHandle("a", false, ep)

	var got []any
	h.On("greet", func(args ...any) { got = args })
	ep.em.Emit("greet", "hi")

	assert.Equal(t, []any{"hi"}, got)
}

func TestHandleGetWorkers(t *testing.T) {
	ep := newFakeEndpoint()
	h := newHandle("a", false, ep)

	var got []*Handle
	h.GetWorkers(func(handles []*Handle, err error) {
		got = handles
		require.NoError(t, err)
	})
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID())
	assert.Equal(t, "b", got[1].ID())
}

func TestHandleSetMaxListeners(t *testing.T) {
	ep := newFakeEndpoint()
	h := newHandle("a", false, ep)

	h.SetMaxListeners(5)
	assert.Equal(t, 5, ep.maxListeners["a"])
}

func TestFlattenIDsVariadicMixed(t *testing.T) {
	ep := newFakeEndpoint()
	peer := newHandle("peer", false, ep)

	ids := flattenIDs([]any{"a", peer, "b"})
	assert.Equal(t, []string{"a", "peer", "b"}, ids)
}
