package ipc

import (
	"reflect"

	"github.com/porkg/workerbus/internal/envelope"
	"github.com/porkg/workerbus/internal/wire"
)

// MasterToWorker and WorkerToMaster are the two wire-tag tables for
// the child channel, generalized from the teacher's per-direction
// rootToWorker/workerToRoot maps in internal/worker/linux.go to the
// envelope shapes this module's router actually needs.
var MasterToWorker = wire.NewTagMap(map[uint8]reflect.Type{
	1: reflect.TypeFor[envelope.Online](),
	2: reflect.TypeFor[envelope.User](),
	3: reflect.TypeFor[envelope.Reboot](),
	4: reflect.TypeFor[envelope.GetWorkersResp](),
})

var WorkerToMaster = wire.NewTagMap(map[uint8]reflect.Type{
	1: reflect.TypeFor[envelope.User](),
	2: reflect.TypeFor[envelope.Transmit](),
	3: reflect.TypeFor[envelope.Broadcast](),
	4: reflect.TypeFor[envelope.GetWorkersReq](),
})
