package router_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/porkg/workerbus/internal/envelope"
	"github.com/porkg/workerbus/internal/router"
)

type fakeMasterSink struct {
	transmitReceivers []string
	transmitEvent     string
	broadcastEvent    string
	respondFrom       string
	respondCorr       string
	deliveredID       string
	deliveredEvent    string
	deliveredData     []any
}

func (f *fakeMasterSink) Transmit(receivers []string, event string, data []any) {
	f.transmitReceivers = receivers
	f.transmitEvent = event
}

func (f *fakeMasterSink) Broadcast(event string, data []any) {
	f.broadcastEvent = event
}

func (f *fakeMasterSink) RespondGetWorkers(fromID, correlationID string) {
	f.respondFrom = fromID
	f.respondCorr = correlationID
}

func (f *fakeMasterSink) DeliverUser(fromID, event string, data []any) {
	f.deliveredID = fromID
	f.deliveredEvent = event
	f.deliveredData = data
}

func TestDispatchMasterTransmit(t *testing.T) {
	sink := &fakeMasterSink{}
	router.DispatchMaster(&envelope.Transmit{ID: "a", Receivers: []string{"b", "c"}, Event: "ping"}, "a", sink)
	assert.Equal(t, []string{"b", "c"}, sink.transmitReceivers)
	assert.Equal(t, "ping", sink.transmitEvent)
}

func TestDispatchMasterBroadcast(t *testing.T) {
	sink := &fakeMasterSink{}
	router.DispatchMaster(&envelope.Broadcast{ID: "a", Event: "news"}, "a", sink)
	assert.Equal(t, "news", sink.broadcastEvent)
}

func TestDispatchMasterGetWorkers(t *testing.T) {
	sink := &fakeMasterSink{}
	router.DispatchMaster(&envelope.GetWorkersReq{ID: "a", CorrelationID: "corr-1"}, "a", sink)
	assert.Equal(t, "a", sink.respondFrom)
	assert.Equal(t, "corr-1", sink.respondCorr)
}

func TestDispatchMasterUserEvent(t *testing.T) {
	sink := &fakeMasterSink{}
	router.DispatchMaster(&envelope.User{Event: "hello", Data: []any{1, "x"}}, "a", sink)
	assert.Equal(t, "a", sink.deliveredID)
	assert.Equal(t, "hello", sink.deliveredEvent)
	assert.Equal(t, []any{1, "x"}, sink.deliveredData)
}

type fakeWorkerSink struct {
	bootstrapID        string
	bootstrapKeepAlive bool
	deliveredEvent     string
	deliveredData      []any
	resolved           *envelope.GetWorkersResp
	rebooted           bool
}

func (f *fakeWorkerSink) Bootstrap(id string, keepAlive bool) {
	f.bootstrapID = id
	f.bootstrapKeepAlive = keepAlive
}

func (f *fakeWorkerSink) Deliver(event string, data []any) {
	f.deliveredEvent = event
	f.deliveredData = data
}

func (f *fakeWorkerSink) ResolveGetWorkers(resp *envelope.GetWorkersResp) {
	f.resolved = resp
}

func (f *fakeWorkerSink) Reboot() {
	f.rebooted = true
}

func TestDispatchWorkerOnline(t *testing.T) {
	sink := &fakeWorkerSink{}
	router.DispatchWorker(&envelope.Online{ID: "a", KeepAlive: true}, sink)
	assert.Equal(t, "a", sink.bootstrapID)
	assert.True(t, sink.bootstrapKeepAlive)
}

func TestDispatchWorkerUserEvent(t *testing.T) {
	sink := &fakeWorkerSink{}
	router.DispatchWorker(&envelope.User{Event: "ping", Data: []any{42}}, sink)
	assert.Equal(t, "ping", sink.deliveredEvent)
	assert.Equal(t, []any{42}, sink.deliveredData)
}

func TestDispatchWorkerGetWorkersResp(t *testing.T) {
	sink := &fakeWorkerSink{}
	resp := &envelope.GetWorkersResp{CorrelationID: "corr-1"}
	router.DispatchWorker(resp, sink)
	assert.Same(t, resp, sink.resolved)
}

func TestDispatchWorkerReboot(t *testing.T) {
	sink := &fakeWorkerSink{}
	router.DispatchWorker(&envelope.Reboot{}, sink)
	assert.True(t, sink.rebooted)
}
