//go:build linux

package ipc

import (
	"fmt"
	"os"

	"github.com/porkg/workerbus/internal/wire"
)

// Self is a worker process's end of the channel back to the master,
// built from the pipe pair the master passed via cmd.ExtraFiles.
// Adapted from the teacher's Reenter()'s fixed-FD convention
// (internal/worker/linux.go): FD 3 is the inherited receive pipe, FD 4
// is the inherited send pipe.
type Self struct {
	Proto *wire.Proto

	recv *os.File
	send *os.File
}

// Connect wires up the worker side of the channel from its inherited
// FDs. Must be called at most once per process.
func Connect() (*Self, error) {
	recv := os.NewFile(3, "workerbus-recv")
	if recv == nil {
		return nil, fmt.Errorf("failed to inherit receive pipe")
	}
	send := os.NewFile(4, "workerbus-send")
	if send == nil {
		recv.Close()
		return nil, fmt.Errorf("failed to inherit send pipe")
	}

	return &Self{
		Proto: wire.Create(send, WorkerToMaster, recv, MasterToWorker),
		recv:  recv,
		send:  send,
	}, nil
}

// Send writes value to the master over the wire protocol.
func (s *Self) Send(value any) error {
	return s.Proto.Send(value)
}

// Close releases the inherited pipe FDs.
func (s *Self) Close() {
	s.send.Close()
	s.recv.Close()
}
