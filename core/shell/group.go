package shell

import (
	"errors"
	"strings"
)

// ErrMissingTarget is returned when nothing follows a redirection operator.
var ErrMissingTarget = errors.New("missing redirection target")

// Argv is a single command: its name followed by its arguments.
type Argv []string

// Name returns the command name, or "" if the vector is empty.
func (a Argv) Name() string {
	if len(a) == 0 {
		return ""
	}
	return a[0]
}

// Args returns the arguments after the command name.
func (a Argv) Args() []string {
	if len(a) < 2 {
		return nil
	}
	return a[1:]
}

// Empty reports whether the vector has no command name. A vector whose first
// token is the empty string counts as empty too, matching an empty line.
func (a Argv) Empty() bool {
	return a.Name() == ""
}

func (a Argv) String() string {
	return strings.Join(a, " ")
}

// Group splits tokens at every occurrence of sep. The separators are dropped.
//
// Empty groups between adjacent separators, or at either end, are kept as nil
// vectors so callers can report them; groups stay in input order.
func Group(tokens []string, sep string) []Argv {
	var (
		out     []Argv
		current Argv
	)

	for _, tok := range tokens {
		if tok == sep {
			out = append(out, current)
			current = nil
			continue
		}
		current = append(current, tok)
	}

	return append(out, current)
}

// SplitRedirect splits tokens at the first ">" into the command before it and
// the file name directly after it.
//
// Only one target is honored: any tokens after the file name are returned as
// ignored so the caller can report them.
func SplitRedirect(tokens []string) (argv Argv, target string, ignored []string, err error) {
	i := 0
	for ; i < len(tokens) && tokens[i] != SepRedirect; i++ {
		argv = append(argv, tokens[i])
	}

	if i+1 >= len(tokens) || tokens[i+1] == "" {
		return argv, "", nil, ErrMissingTarget
	}

	return argv, tokens[i+1], tokens[i+2:], nil
}
