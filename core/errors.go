package core

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrExit is returned when the user asked the shell to quit.
	ErrExit = errors.New("exit")
	// ErrInterrupted is returned when a child was killed by SIGINT and the rest
	// of the line was abandoned.
	ErrInterrupted = errors.New("interrupted")
	// ErrStopped is returned when a foreground child was stopped and has been
	// killed; the rest of the line is abandoned.
	ErrStopped = errors.New("stopped")
)

// ArgumentError means a built-in was called with arguments it can't accept.
// Nothing was run.
type ArgumentError struct {
	Command string
	Reason  string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Command, e.Reason)
}

// NotFoundError means the target of a built-in could not be used.
type NotFoundError struct {
	Command string
	Path    string
	Err     error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Command, e.Path, describe(e.Err))
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// describe turns an error into the short capitalized reason shells print,
// e.g. "No such file or directory".
func describe(err error) string {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		err = pathErr.Err
	}
	msg := err.Error()
	if msg == "" {
		return msg
	}
	r, size := utf8.DecodeRuneInString(msg)
	return string(unicode.ToUpper(r)) + msg[size:]
}

// EmptyCommandError means a group of a line names no command, e.g. "a ## ## b".
type EmptyCommandError struct {
	// Index of the empty group, counting from 0.
	Index int
}

func (e *EmptyCommandError) Error() string {
	return "empty command segment"
}

// MixedSeparatorsError means a line used more than one kind of operator.
type MixedSeparatorsError struct {
	Separators []string
}

func (e *MixedSeparatorsError) Error() string {
	return fmt.Sprintf("cannot mix %s in one line", strings.Join(e.Separators, " and "))
}
