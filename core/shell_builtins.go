package core

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pborman/getopt/v2"
)

const (
	EnvHome = "HOME"
	EnvPath = "PATH"
)

// AllBuiltins holds a list of all registered shell builtins
var AllBuiltins = make(map[string]ShellBuiltin)

// BuiltinNames returns the names of the registered builtins in order.
func BuiltinNames() []string {
	var names []string
	for k := range AllBuiltins {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// BuiltinEnv is the part of the shell process a builtin may use.
type BuiltinEnv struct {
	Getenv func(key string) string
	Chdir  func(dir string) error
	Getwd  func() (string, error)
	Stdout io.Writer
	Stderr io.Writer
}

// ProcessEnv returns an environment backed by the current process.
func ProcessEnv(stdout, stderr io.Writer) *BuiltinEnv {
	return &BuiltinEnv{
		Getenv: os.Getenv,
		Chdir:  os.Chdir,
		Getwd:  os.Getwd,
		Stdout: stdout,
		Stderr: stderr,
	}
}

type ShellBuiltin interface {
	Main(env *BuiltinEnv, args []string) error
}

type ShellBuiltinFunc func(env *BuiltinEnv, args []string) error

func (f ShellBuiltinFunc) Main(env *BuiltinEnv, args []string) error {
	return f(env, args)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

// Cd is the cd shell builtin
func Cd(env *BuiltinEnv, args []string) error {
	// A lone operand is the target even if it starts with a dash.
	if len(args) == 2 && !cdFlags[args[1]] {
		return chdir(env, args[1])
	}

	opts := getopt.New()
	opts.SetProgram("cd")
	opts.SetParameters("[dir]")
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	if err := opts.Getopt(args, nil); err != nil {
		return &ArgumentError{Command: "cd", Reason: err.Error()}
	}

	if *helpOpt {
		opts.PrintUsage(env.Stdout)
		return nil
	}

	var dir string
	switch rest := opts.Args(); len(rest) {
	case 0:
		dir = env.Getenv(EnvHome)
	case 1:
		dir = rest[0]
	default:
		return &ArgumentError{Command: "cd", Reason: "too many arguments"}
	}

	return chdir(env, dir)
}

var cdFlags = map[string]bool{"-h": true, "--help": true, "--": true}

func chdir(env *BuiltinEnv, dir string) error {
	if err := env.Chdir(dir); err != nil {
		return &NotFoundError{Command: "cd", Path: dir, Err: err}
	}
	return nil
}

// Exit quits the shell
func Exit(env *BuiltinEnv, args []string) error {
	fmt.Fprintln(env.Stdout, "Exiting shell...")
	return ErrExit
}

func init() {
	AllBuiltins["cd"] = ShellBuiltinFunc(Cd)
	AllBuiltins["exit"] = ShellBuiltinFunc(Exit)
}
