//go:build unix

// Package proc spawns, waits for and kills child processes.
//
// A Handle is the only way to refer to a spawned child; raw process IDs never
// leave this package except for logging. The Launcher never waits: callers
// decide whether to wait for one child at a time or reap a whole set.
package proc

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// ErrNoChildren is returned by WaitAny when there is nothing left to reap.
var ErrNoChildren = errors.New("no child processes")

// SpawnError means the OS could not create a process at all.
type SpawnError struct {
	Argv []string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", strings.Join(e.Argv, " "), e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ExecError means the process image could not be replaced with the command,
// usually because it doesn't exist or isn't executable.
type ExecError struct {
	Argv []string
	Err  error
}

func (e *ExecError) Error() string {
	name := ""
	if len(e.Argv) > 0 {
		name = e.Argv[0]
	}
	return fmt.Sprintf("exec %q: %v", name, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// isSpawnErrno reports whether err can only come from creating the process.
// ENOMEM, EMFILE and ENFILE are left out: execve in the child returns them too,
// and ForkExec reports both stages the same way.
func isSpawnErrno(err error) bool {
	for _, errno := range []error{unix.EAGAIN, unix.ENOSPC} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

// Stdio holds the standard streams handed to a child as fds 0, 1 and 2.
type Stdio struct {
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

// StandardIO returns the streams of the current process.
func StandardIO() Stdio {
	return Stdio{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// WithStdout returns a copy of the streams with standard output replaced.
func (s Stdio) WithStdout(f *os.File) Stdio {
	s.Stdout = f
	return s
}

func orDefault(f, def *os.File) *os.File {
	if f == nil {
		return def
	}
	return f
}

// Resolve fills unset streams with the ones of the current process.
func (s Stdio) Resolve() Stdio {
	return Stdio{
		Stdin:  orDefault(s.Stdin, os.Stdin),
		Stdout: orDefault(s.Stdout, os.Stdout),
		Stderr: orDefault(s.Stderr, os.Stderr),
	}
}

func (s Stdio) files() []*os.File {
	r := s.Resolve()
	return []*os.File{r.Stdin, r.Stdout, r.Stderr}
}

// Launcher starts child processes.
type Launcher struct {
	// Getenv resolves PATH for command lookup, defaults to os.Getenv.
	Getenv Getenv
	// Environ produces the child environment, defaults to os.Environ.
	Environ func() []string
}

// NewLauncher creates a Launcher that uses the process environment.
func NewLauncher() *Launcher {
	return &Launcher{
		Getenv:  os.Getenv,
		Environ: os.Environ,
	}
}

// Start forks a child running argv with the given streams and returns its
// handle without waiting.
//
// The child starts with default dispositions for every signal the shell
// catches, see Ignore. Failures to find or execute the program are reported as
// *ExecError; failures to create the process at all are *SpawnError.
func (l *Launcher) Start(argv []string, stdio Stdio) (*Handle, error) {
	getenv := l.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	environ := l.Environ
	if environ == nil {
		environ = os.Environ
	}

	if len(argv) == 0 {
		return nil, &ExecError{Argv: argv, Err: ErrNotFound}
	}

	path, err := LookPath(getenv, argv[0])
	if err != nil {
		return nil, &ExecError{Argv: argv, Err: err}
	}

	files := stdio.files()
	fds := make([]uintptr, len(files))
	for i, f := range files {
		fds[i] = f.Fd()
	}

	pid, err := syscall.ForkExec(path, argv, &syscall.ProcAttr{
		Env:   environ(),
		Files: fds,
	})
	runtime.KeepAlive(files)

	switch {
	case err == nil:
		return &Handle{pid: pid, argv: argv}, nil
	case isSpawnErrno(err):
		return nil, &SpawnError{Argv: argv, Err: err}
	default:
		return nil, &ExecError{Argv: argv, Err: err}
	}
}

// Handle owns one spawned child from creation until its exit status has been
// consumed.
type Handle struct {
	pid  int
	argv []string
	done bool
}

// Pid returns the process ID, for logging.
func (h *Handle) Pid() int {
	return h.pid
}

// Argv returns the command the child was started with.
func (h *Handle) Argv() []string {
	return h.argv
}

// Done reports whether the child has been reaped.
func (h *Handle) Done() bool {
	return h.done
}

func (h *Handle) observe(st Status) {
	if st.Exited || st.Signaled {
		h.done = true
	}
}

// Wait blocks until the child exits, is killed or is stopped.
//
// A stopped child is not reaped; it must be resumed or killed and waited for
// again.
func (h *Handle) Wait() (Status, error) {
	if h.done {
		return Status{}, fmt.Errorf("wait %d: %w", h.pid, ErrNoChildren)
	}

	for {
		var ws unix.WaitStatus
		_, err := unix.Wait4(h.pid, &ws, unix.WUNTRACED, nil)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.ECHILD):
			h.done = true
			return Status{}, fmt.Errorf("wait %d: %w", h.pid, ErrNoChildren)
		case err != nil:
			return Status{}, fmt.Errorf("wait %d: %w", h.pid, err)
		}

		st := statusOf(h.pid, ws)
		h.observe(st)
		return st, nil
	}
}

// Signal sends sig to the child.
func (h *Handle) Signal(sig unix.Signal) error {
	if h.done {
		return fmt.Errorf("signal %d: %w", h.pid, os.ErrProcessDone)
	}
	return unix.Kill(h.pid, sig)
}

// Kill sends SIGKILL to the child. Stopped children are killed too.
func (h *Handle) Kill() error {
	return h.Signal(unix.SIGKILL)
}

// Terminate kills the child and reaps it.
func (h *Handle) Terminate() (Status, error) {
	if err := h.Kill(); err != nil {
		return Status{}, err
	}

	for {
		st, err := h.Wait()
		if err != nil || h.done {
			return st, err
		}
	}
}

// WaitAny blocks until any child changes state and returns the owning handle.
// Children that don't belong to handles are reaped and skipped.
func WaitAny(handles []*Handle) (*Handle, Status, error) {
	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, unix.WUNTRACED, nil)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.ECHILD):
			return nil, Status{}, ErrNoChildren
		case err != nil:
			return nil, Status{}, fmt.Errorf("wait: %w", err)
		}

		for _, h := range handles {
			if h.pid == pid && !h.done {
				st := statusOf(pid, ws)
				h.observe(st)
				return h, st, nil
			}
		}
	}
}
