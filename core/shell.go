package core

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"
	"github.com/josephlewis42/myshell/core/proc"
	"github.com/mattn/go-isatty"
)

// Shell reads lines from its standard input and executes them until the input
// ends or the user exits.
type Shell struct {
	*Executor
	Readline *readline.Instance

	color  bool
	cwd    *color.Color
	prompt *color.Color
	errors *color.Color
}

// NewShell wraps an executor in an interactive read loop over the executor's
// standard streams.
func NewShell(executor *Executor) (*Shell, error) {
	stdio := executor.Stdio.Resolve()
	stdinFd := stdio.Stdin.Fd()
	interactive := isatty.IsTerminal(stdinFd) && isatty.IsTerminal(stdio.Stdout.Fd())

	var rawState *readline.State
	cfg := &readline.Config{
		Stdin:  readline.NewCancelableStdin(stdio.Stdin),
		Stdout: stdio.Stdout,
		Stderr: stdio.Stderr,

		// History is not supported.
		HistoryLimit:           -1,
		DisableAutoSaveHistory: true,

		FuncIsTerminal: func() bool {
			return interactive
		},
		FuncMakeRaw: func() (err error) {
			if !interactive {
				return nil
			}
			rawState, err = readline.MakeRaw(int(stdinFd))
			return err
		},
		FuncExitRaw: func() error {
			if rawState == nil {
				return nil
			}
			defer func() { rawState = nil }()
			return readline.Restore(int(stdinFd), rawState)
		},
		// ^Z would make readline suspend the shell itself.
		FuncFilterInputRune: func(r rune) (rune, bool) {
			return r, r != readline.CharCtrlZ
		},
	}

	if err := cfg.Init(); err != nil {
		return nil, err
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, err
	}

	shell := &Shell{
		Executor: executor,
		Readline: rl,
		color:    executor.Config.Prompt.Color && isatty.IsTerminal(stdio.Stdout.Fd()),
		cwd:      color.New(color.FgCyan),
		prompt:   color.New(color.FgWhite),
		errors:   color.New(color.FgRed),
	}
	if shell.color {
		shell.cwd.EnableColor()
		shell.prompt.EnableColor()
		shell.errors.EnableColor()
	} else {
		shell.cwd.DisableColor()
		shell.prompt.DisableColor()
		shell.errors.DisableColor()
	}

	return shell, nil
}

// Prompt renders the prompt for the current working directory.
func (s *Shell) Prompt() string {
	wd, err := s.Env.Getwd()
	if err != nil {
		wd = "?"
	}
	return s.prompt.Sprint(s.Config.Prompt.Render(s.cwd.Sprint(wd)))
}

// Run is the read-eval loop. It returns the exit status of the shell.
//
// While it runs, SIGINT and SIGTSTP from the terminal don't affect the shell;
// only the children running in the foreground receive them.
func (s *Shell) Run(ctx context.Context) int {
	release := proc.Ignore(proc.JobControl...)
	defer release()

	for {
		s.Readline.SetPrompt(s.Prompt())
		line, err := s.Readline.Readline()

		switch {
		case err == io.EOF:
			return 0 // Input closed, quit.

		case err == readline.ErrInterrupt:
			continue

		case err != nil:
			s.Log.Printf("Error readline: %v", err)
			return 1

		default:
			if status, done := s.exitStatus(s.Execute(ctx, line)); done {
				return status
			}
		}
	}
}

// RunCommand executes a single line as if it had been typed and returns the
// exit status of the shell.
func (s *Shell) RunCommand(ctx context.Context, line string) int {
	release := proc.Ignore(proc.JobControl...)
	defer release()

	status, _ := s.exitStatus(s.Execute(ctx, line))
	return status
}

// exitStatus reports errors from Execute and decides whether the shell has to
// stop.
func (s *Shell) exitStatus(err error) (status int, done bool) {
	var spawnErr *proc.SpawnError
	switch {
	case err == nil, errors.Is(err, ErrInterrupted), errors.Is(err, ErrStopped):
		return 0, false

	case errors.Is(err, ErrExit):
		return 0, true

	case errors.As(err, &spawnErr):
		s.reportError(err)
		return 1, true

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return 1, true

	default:
		s.reportError(err)
		return 0, false
	}
}

func (s *Shell) reportError(err error) {
	fmt.Fprintf(s.Env.Stderr, "%s %v\n", s.errors.Sprint("myshell:"), err)
}

func (s *Shell) Close() error {
	return s.Readline.Close()
}
