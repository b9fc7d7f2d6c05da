//go:build unix

package proc

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Status is a state change observed by waiting on a child.
type Status struct {
	Pid int

	Exited   bool
	ExitCode int

	Signaled bool
	Signal   unix.Signal

	Stopped    bool
	StopSignal unix.Signal
}

func statusOf(pid int, ws unix.WaitStatus) Status {
	st := Status{Pid: pid}
	switch {
	case ws.Exited():
		st.Exited = true
		st.ExitCode = ws.ExitStatus()
	case ws.Signaled():
		st.Signaled = true
		st.Signal = ws.Signal()
	case ws.Stopped():
		st.Stopped = true
		st.StopSignal = ws.StopSignal()
	}
	return st
}

// ExitedWith returns the status of a child that exited with code. It stands in
// for children that could not exec.
func ExitedWith(code int) Status {
	return Status{Exited: true, ExitCode: code}
}

// StoppedBy reports whether the child was stopped by sig.
func (s Status) StoppedBy(sig unix.Signal) bool {
	return s.Stopped && s.StopSignal == sig
}

// KilledBy reports whether the child was terminated by sig.
func (s Status) KilledBy(sig unix.Signal) bool {
	return s.Signaled && s.Signal == sig
}

func (s Status) String() string {
	switch {
	case s.Exited:
		return fmt.Sprintf("exit status %d", s.ExitCode)
	case s.Signaled:
		return fmt.Sprintf("signal: %v", s.Signal)
	case s.Stopped:
		return fmt.Sprintf("stopped: %v", s.StopSignal)
	default:
		return "unknown"
	}
}
