//go:build unix

package proc

import (
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"
)

// JobControl holds the keyboard signals a terminal sends to its foreground
// process group: interrupt (^C) and terminal stop (^Z).
var JobControl = []os.Signal{unix.SIGINT, unix.SIGTSTP}

// Ignore keeps the process running when any of sigs arrives until release is
// called. With no sigs, JobControl is used.
//
// The signals are caught and dropped, not set to SIG_IGN: caught signals revert
// to their default action across exec, ignored ones would be inherited by every
// child.
func Ignore(sigs ...os.Signal) (release func()) {
	if len(sigs) == 0 {
		sigs = JobControl
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	go func() {
		for range ch {
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(ch)
		})
	}
}
