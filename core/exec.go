package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/josephlewis42/myshell/core/config"
	"github.com/josephlewis42/myshell/core/logger"
	"github.com/josephlewis42/myshell/core/proc"
	"github.com/josephlewis42/myshell/core/shell"
	"golang.org/x/sys/unix"
)

// Executor runs input lines: it tokenizes them, picks the strategy for the
// line's mode and applies that strategy's wait and signal policy to the
// children it spawns.
type Executor struct {
	Config   *config.Configuration
	Launcher *proc.Launcher
	Stdio    proc.Stdio
	Env      *BuiltinEnv
	// Events receives a record of everything the executor does, may be nil.
	Events *logger.SessionLogger
	Log    *log.Logger

	commands int
}

// NewExecutor creates an executor running children with the given streams in
// the current process's environment.
func NewExecutor(cfg *config.Configuration, stdio proc.Stdio) *Executor {
	stdio = stdio.Resolve()
	return &Executor{
		Config:   cfg,
		Launcher: proc.NewLauncher(),
		Stdio:    stdio,
		Env:      ProcessEnv(stdio.Stdout, stdio.Stderr),
		Log:      log.New(io.Discard, "", 0),
	}
}

// Commands returns the number of non-empty lines executed so far.
func (e *Executor) Commands() int {
	return e.commands
}

// Execute runs one line of input.
//
// Empty lines are ignored. Errors that only affect the line, such as an empty
// command segment, are returned for the caller to report; the shell can keep
// going after them. ErrExit, ErrInterrupted, ErrStopped and *proc.SpawnError
// are returned as is.
func (e *Executor) Execute(ctx context.Context, line string) error {
	l := shell.Tokenize(line)
	if l.Empty() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.commands++
	e.record(&logger.RunLine{
		Line:   shell.TrimTerminator(line),
		Mode:   l.Mode.String(),
		Groups: groupsOf(l),
	})

	err := e.dispatch(ctx, l)
	if err != nil && !errors.Is(err, ErrExit) && !errors.Is(err, ErrInterrupted) && !errors.Is(err, ErrStopped) {
		e.record(&logger.LineError{Line: shell.TrimTerminator(line), Error: err.Error()})
	}
	return err
}

func (e *Executor) dispatch(ctx context.Context, l shell.Line) error {
	// exit at the start of a line always ends the shell, whatever follows.
	if l.Command() == "exit" {
		return e.runBuiltin(AllBuiltins["exit"], shell.Argv(l.Tokens))
	}

	if l.Mixed() && e.Config.Separators.RejectMixed() {
		return &MixedSeparatorsError{Separators: l.Separators}
	}

	switch l.Mode {
	case shell.SequentialCommands:
		return e.runSequential(ctx, l)
	case shell.ParallelCommands:
		return e.runParallel(ctx, l)
	case shell.CommandRedirection:
		return e.runRedirect(ctx, l)
	default:
		return e.runSingle(ctx, l)
	}
}

func groupsOf(l shell.Line) [][]string {
	var out [][]string
	switch l.Mode {
	case shell.SequentialCommands, shell.ParallelCommands:
		for _, g := range shell.Group(l.Tokens, l.Mode.Separator()) {
			out = append(out, g)
		}
	default:
		out = append(out, l.Tokens)
	}
	return out
}

// groups splits the line on its mode's operator and rejects empty groups.
func groups(l shell.Line) ([]shell.Argv, error) {
	out := shell.Group(l.Tokens, l.Mode.Separator())
	for i, argv := range out {
		if argv.Empty() {
			return nil, &EmptyCommandError{Index: i}
		}
	}
	return out, nil
}

// lookupBuiltin returns the builtin argv names if it runs in-process in mode.
func (e *Executor) lookupBuiltin(argv shell.Argv, mode shell.Mode) (ShellBuiltin, bool) {
	name := argv.Name()
	builtin, ok := AllBuiltins[name]
	if !ok {
		return nil, false
	}
	if name == "exit" && !e.Config.Builtins.ExitEverywhere && mode != shell.SequentialCommands {
		return nil, false
	}
	return builtin, true
}

// runBuiltin runs a builtin in the shell process. Its errors are reported
// here; only ErrExit is returned.
func (e *Executor) runBuiltin(builtin ShellBuiltin, argv shell.Argv) error {
	err := builtin.Main(e.Env, argv)

	event := &logger.Builtin{Command: argv}
	if err != nil && !errors.Is(err, ErrExit) {
		event.Error = err.Error()
	}
	e.record(event)

	switch {
	case errors.Is(err, ErrExit):
		return err
	case err != nil:
		fmt.Fprintln(e.Env.Stderr, err)
	}
	return nil
}

// start spawns argv. A nil handle with a nil error means the program could not
// be executed; that was reported and is treated like a child that exited 1.
func (e *Executor) start(argv shell.Argv, stdio proc.Stdio, target string) (*proc.Handle, error) {
	h, err := e.Launcher.Start(argv, stdio)

	event := &logger.Spawn{Command: argv, Stdout: target}
	var execErr *proc.ExecError
	switch {
	case err == nil:
		event.Pid = h.Pid()
		e.record(event)
		return h, nil

	case errors.As(err, &execErr):
		event.Error = execErr.Err.Error()
		e.record(event)
		e.Log.Printf("%v", err)

		fmt.Fprintln(stdio.Resolve().Stdout, "Shell: Incorrect command")
		e.record(&logger.ChildStatus{Command: argv, Status: proc.ExitedWith(1).String()})
		return nil, nil

	default:
		event.Error = err.Error()
		e.record(event)
		return nil, err
	}
}

// await waits for a foreground child. A stopped child is killed and yields
// ErrStopped, a child killed by SIGINT yields ErrInterrupted.
func (e *Executor) await(h *proc.Handle) error {
	st, err := h.Wait()
	if err != nil {
		return err
	}

	if st.Stopped {
		e.recordStatus(h, st, true)
		if _, err := h.Terminate(); err != nil {
			return err
		}
		return ErrStopped
	}

	e.recordStatus(h, st, false)
	if st.KilledBy(unix.SIGINT) {
		return ErrInterrupted
	}
	return nil
}

// reap waits for every handle to finish, in whatever order they do. Stopped
// children are killed.
func (e *Executor) reap(handles []*proc.Handle) error {
	remaining := len(handles)
	for remaining > 0 {
		h, st, err := proc.WaitAny(handles)
		switch {
		case errors.Is(err, proc.ErrNoChildren):
			return nil
		case err != nil:
			return err
		}

		e.recordStatus(h, st, st.Stopped)
		if st.Stopped {
			if _, err := h.Terminate(); err != nil {
				e.Log.Printf("killing stopped child %d: %v", h.Pid(), err)
			}
		}

		if h.Done() {
			remaining--
		}
	}
	return nil
}

func (e *Executor) runSingle(ctx context.Context, l shell.Line) error {
	argv := shell.Argv(l.Tokens)
	if builtin, ok := e.lookupBuiltin(argv, l.Mode); ok {
		return e.runBuiltin(builtin, argv)
	}

	h, err := e.start(argv, e.Stdio, "")
	if h == nil {
		return err
	}
	return e.await(h)
}

// runSequential runs each group to completion before starting the next. An
// interrupted or stopped child abandons the rest of the chain.
func (e *Executor) runSequential(ctx context.Context, l shell.Line) error {
	argvs, err := groups(l)
	if err != nil {
		return err
	}

	for _, argv := range argvs {
		if err := ctx.Err(); err != nil {
			return err
		}

		if builtin, ok := e.lookupBuiltin(argv, l.Mode); ok {
			if err := e.runBuiltin(builtin, argv); err != nil {
				return err
			}
			continue
		}

		h, err := e.start(argv, e.Stdio, "")
		if err != nil {
			return err
		}
		if h == nil {
			continue
		}
		if err := e.await(h); err != nil {
			return err
		}
	}
	return nil
}

// runParallel starts every group, then reaps them all. Builtins run inline
// while the groups are being started.
func (e *Executor) runParallel(ctx context.Context, l shell.Line) error {
	argvs, err := groups(l)
	if err != nil {
		return err
	}

	var (
		handles   []*proc.Handle
		launchErr error
	)

Launch:
	for _, argv := range argvs {
		if err := ctx.Err(); err != nil {
			launchErr = err
			break
		}

		if builtin, ok := e.lookupBuiltin(argv, l.Mode); ok {
			if err := e.runBuiltin(builtin, argv); err != nil {
				launchErr = err
				break Launch
			}
			continue
		}

		h, err := e.start(argv, e.Stdio, "")
		switch {
		case err != nil:
			launchErr = err
			break Launch
		case h != nil:
			handles = append(handles, h)
		}
	}

	// Children already running are reaped even if the rest of the line
	// couldn't be started.
	if err := e.reap(handles); err != nil && launchErr == nil {
		return err
	}
	return launchErr
}

// runRedirect appends the output of a single command to the file named after
// the first ">". The child is waited for without any stop or interrupt
// handling.
func (e *Executor) runRedirect(ctx context.Context, l shell.Line) error {
	argv, target, ignored, err := shell.SplitRedirect(l.Tokens)
	if err != nil {
		return err
	}
	if argv.Empty() {
		return &EmptyCommandError{Index: 0}
	}
	if len(ignored) > 0 {
		e.Log.Printf("ignoring %q after redirection target %q", ignored, target)
	}

	if builtin, ok := e.lookupBuiltin(argv, l.Mode); ok {
		return e.runBuiltin(builtin, argv)
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, e.Config.Redirect.Mode())
	if err != nil {
		return err
	}
	h, err := e.start(argv, e.Stdio.WithStdout(out), target)
	out.Close()
	if h == nil {
		return err
	}

	for !h.Done() {
		st, err := h.Wait()
		if err != nil {
			return err
		}
		e.recordStatus(h, st, false)
	}
	return nil
}

func (e *Executor) recordStatus(h *proc.Handle, st proc.Status, killed bool) {
	e.record(&logger.ChildStatus{
		Command: h.Argv(),
		Pid:     h.Pid(),
		Status:  st.String(),
		Killed:  killed,
	})
}

func (e *Executor) record(event logger.LogType) {
	if err := e.Events.Record(event); err != nil {
		e.Log.Printf("recording event: %v", err)
	}
}
