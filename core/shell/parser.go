// Package shell turns a raw input line into argument vectors.
package shell

/**
1. The shell reads one line of input from the terminal or from the -c option.
The trailing line terminator is removed.

2. The shell breaks the line into tokens on every single space. There is no
quoting, escaping or expansion: two spaces in a row produce an empty token.

3. Three tokens are operators rather than words:

	##  run the commands on either side one after another
	&&  run the commands on either side at the same time
	>   append the output of the command to the file that follows

4. The line is classified by the last operator it contains and the tokens are
grouped into argument vectors for that mode; see Group and SplitRedirect.
**/

import (
	"strings"
)

const (
	SepSequential = "##"
	SepParallel   = "&&"
	SepRedirect   = ">"
)

// Mode is the way a line's commands are run.
type Mode int

const (
	SingleCommand Mode = iota
	SequentialCommands
	ParallelCommands
	CommandRedirection
)

func (m Mode) String() string {
	switch m {
	case SingleCommand:
		return "single"
	case SequentialCommands:
		return "sequential"
	case ParallelCommands:
		return "parallel"
	case CommandRedirection:
		return "redirect"
	default:
		return "unknown"
	}
}

// Separator returns the operator that delimits groups in the mode, or "" for
// SingleCommand.
func (m Mode) Separator() string {
	switch m {
	case SequentialCommands:
		return SepSequential
	case ParallelCommands:
		return SepParallel
	case CommandRedirection:
		return SepRedirect
	default:
		return ""
	}
}

// modeOf maps a token to the mode it selects.
func modeOf(token string) (Mode, bool) {
	switch token {
	case SepSequential:
		return SequentialCommands, true
	case SepParallel:
		return ParallelCommands, true
	case SepRedirect:
		return CommandRedirection, true
	default:
		return SingleCommand, false
	}
}

// Line is a tokenized input line.
type Line struct {
	// Tokens holds every token of the line in order, operators included.
	Tokens []string
	// Mode is selected by the last operator in the line.
	Mode Mode
	// Separators lists each distinct operator in the order it first appeared.
	Separators []string
}

// Mixed reports whether the line contains more than one kind of operator.
func (l Line) Mixed() bool {
	return len(l.Separators) > 1
}

// Empty reports whether the line names no command at all.
func (l Line) Empty() bool {
	return len(l.Tokens) == 0 || l.Tokens[0] == ""
}

// Command returns the first token of the line.
func (l Line) Command() string {
	if len(l.Tokens) == 0 {
		return ""
	}
	return l.Tokens[0]
}

// TrimTerminator removes a single trailing "\n" or "\r\n".
func TrimTerminator(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// Tokenize splits a line on single spaces and classifies it.
//
// Operators are kept in the returned tokens so they can be grouped later.
// An empty line yields a single empty token in SingleCommand mode.
func Tokenize(line string) Line {
	out := Line{
		Tokens: strings.Split(TrimTerminator(line), " "),
		Mode:   SingleCommand,
	}

	for _, tok := range out.Tokens {
		mode, ok := modeOf(tok)
		if !ok {
			continue
		}
		out.Mode = mode

		seen := false
		for _, s := range out.Separators {
			if s == tok {
				seen = true
				break
			}
		}
		if !seen {
			out.Separators = append(out.Separators, tok)
		}
	}

	return out
}
