//go:build linux

// Package ipc is the child channel adapter (C2): it forks a worker
// process, wires up its duplex pipe pair, and surfaces the three
// asynchronous signals spec.md §4.2 requires (online, exit, error) as
// Go channels. Adapted from the teacher's internal/worker/linux.go
// Worker type, generalized from porkg's job-spawning zygote model to
// a flat master -> named-worker fork.
package ipc

import (
	"fmt"
	"os"
	"os/exec"
	"sync/atomic"
	"syscall"

	"github.com/oraoto/go-pidfd"
	"github.com/rs/zerolog/log"

	"github.com/porkg/workerbus/internal/wire"
)

// ExitInfo is the classified outcome of a terminated child, passed on
// the Channel's Exit signal.
type ExitInfo struct {
	Code      int
	HasCode   bool
	Signal    syscall.Signal
	HasSignal bool
}

// SignalName returns the POSIX name of the terminating signal (e.g.
// "SIGKILL"), or "" if the child exited via a code instead.
func (e ExitInfo) SignalName() string {
	if !e.HasSignal {
		return ""
	}
	switch e.Signal {
	case syscall.SIGKILL:
		return "SIGKILL"
	case syscall.SIGTERM:
		return "SIGTERM"
	case syscall.SIGHUP:
		return "SIGHUP"
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGSEGV:
		return "SIGSEGV"
	case syscall.SIGABRT:
		return "SIGABRT"
	default:
		return e.Signal.String()
	}
}

// Channel is the master's live handle to one forked worker process.
type Channel struct {
	ID  string
	PID int

	proc   *os.Process
	pidFd  pidfd.PidFd
	send   *os.File
	recv   *os.File
	Proto  *wire.Proto
	died   chan struct{}
	online chan struct{}

	exitState atomic.Pointer[ExitInfo]

	// Exit fires exactly once with the classified outcome. Err fires
	// zero or more times with low-level channel errors.
	Exit chan ExitInfo
	Err  chan error
}

func socketPair() (recv, send, childRecv, childSend *os.File, err error) {
	recv, childSend, err = os.Pipe()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	childRecv, send, err = os.Pipe()
	if err != nil {
		childSend.Close()
		recv.Close()
		return nil, nil, nil, nil, err
	}
	return recv, send, childRecv, childSend, nil
}

// Spawn forks the current executable re-exec'd as worker id and wires
// up its pipe pair at fixed FDs 3 (recv) / 4 (send), mirroring the
// teacher's cmd.ExtraFiles convention.
func Spawn(id string, extraArgs []string) (*Channel, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to find the executable to fork the worker %q: %w", id, err)
	}

	recv, send, childRecv, childSend, err := socketPair()
	if err != nil {
		return nil, fmt.Errorf("failed to create the pipe for worker %q: %w", id, err)
	}
	defer childRecv.Close()
	defer childSend.Close()

	cmd := exec.Command(execPath, extraArgs...)
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.ExtraFiles = []*os.File{childRecv, childSend}

	log.Info().Str("id", id).Str("cmd", execPath).Msg("forking worker")

	if err := cmd.Start(); err != nil {
		send.Close()
		recv.Close()
		return nil, fmt.Errorf("failed to fork worker %q: %w", id, err)
	}

	pfd, err := pidfd.Open(cmd.Process.Pid, 0)
	if err != nil {
		send.Close()
		recv.Close()
		cmd.Process.Kill()
		return nil, fmt.Errorf("failed to open pidfd for worker %q: %w", id, err)
	}

	c := &Channel{
		ID:     id,
		PID:    cmd.Process.Pid,
		proc:   cmd.Process,
		pidFd:  pfd,
		send:   send,
		recv:   recv,
		Proto:  wire.Create(send, MasterToWorker, recv, WorkerToMaster),
		died:   make(chan struct{}),
		online: make(chan struct{}),
		Exit:   make(chan ExitInfo, 1),
		Err:    make(chan error, 4),
	}
	go c.monitorExit()

	log.Info().Str("id", id).Int("pid", c.PID).Msg("forked worker")
	return c, nil
}

// MarkOnline is called by the supervisor right after a successful
// fork (in this protocol, "online" is implicit: the child is ready as
// soon as Spawn returns, since the pipe is connected before exec).
// Exposed so the lifecycle controller can fire its own "online"
// bookkeeping exactly once.
func (c *Channel) MarkOnline() {
	select {
	case <-c.online:
	default:
		close(c.online)
	}
}

// Send writes value to the child over the wire protocol. Failures are
// reported on Err, not returned, per spec.md §4.2 ("failures surface
// via error").
func (c *Channel) Send(value any) {
	if err := c.Proto.Send(value); err != nil {
		select {
		case c.Err <- fmt.Errorf("worker %q: %w", c.ID, err):
		default:
		}
	}
}

// Kill terminates the child immediately via its pidfd, race-free
// against PID reuse.
func (c *Channel) Kill() error {
	if err := c.pidFd.SendSignal(syscall.SIGKILL); err != nil {
		return fmt.Errorf("failed to kill worker %q: %w", c.ID, err)
	}
	return nil
}

// Terminate asks the child to exit gracefully (SIGTERM).
func (c *Channel) Terminate() error {
	if err := c.pidFd.SendSignal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to terminate worker %q: %w", c.ID, err)
	}
	return nil
}

func (c *Channel) monitorExit() {
	defer close(c.died)
	defer c.pidFd.Close()

	state, err := c.proc.Wait()
	if err != nil {
		select {
		case c.Err <- fmt.Errorf("worker %q: wait failed: %w", c.ID, err):
		default:
		}
	}

	info := ExitInfo{}
	if state != nil {
		if state.Exited() {
			info.HasCode = true
			info.Code = state.ExitCode()
		} else if wait, ok := state.Sys().(syscall.WaitStatus); ok && wait.Signaled() {
			info.HasSignal = true
			info.Signal = wait.Signal()
		}
	}
	c.exitState.Store(&info)

	log.Info().
		Str("id", c.ID).
		Int("pid", c.PID).
		Int("code", info.Code).
		Bool("hasCode", info.HasCode).
		Str("signal", info.SignalName()).
		Msg("worker process exited")

	c.Exit <- info
}
