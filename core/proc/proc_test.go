//go:build unix

package proc

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func writeExecutable(t *testing.T, dir, name, contents string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), mode))
	return path
}

func TestLookPath(t *testing.T) {
	dir := t.TempDir()
	script := writeExecutable(t, dir, "hello", "#!/bin/sh\necho hello\n", 0755)
	writeExecutable(t, dir, "data", "not a program", 0644)
	getenv := func(key string) string {
		if key == "PATH" {
			return dir
		}
		return ""
	}

	t.Run("found-in-path", func(t *testing.T) {
		path, err := LookPath(getenv, "hello")
		assert.NoError(t, err)
		assert.Equal(t, script, path)
	})

	t.Run("direct-path", func(t *testing.T) {
		path, err := LookPath(getenv, script)
		assert.NoError(t, err)
		assert.Equal(t, script, path)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := LookPath(getenv, "does-not-exist")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("not-executable", func(t *testing.T) {
		_, err := LookPath(getenv, filepath.Join(dir, "data"))
		assert.ErrorIs(t, err, fs.ErrPermission)
	})

	t.Run("empty-name", func(t *testing.T) {
		_, err := LookPath(getenv, "")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLookPath_emptyPath(t *testing.T) {
	noPath := func(string) string { return "" }

	path, err := LookPath(noPath, "sh")
	require.NoError(t, err)
	assert.Contains(t, []string{"/bin/sh", "/usr/bin/sh"}, path)

	launcher := &Launcher{Getenv: noPath}
	h, err := launcher.Start([]string{"sh", "-c", "exit 0"}, StandardIO())
	require.NoError(t, err)
	st, err := h.Wait()
	require.NoError(t, err)
	assert.True(t, st.Exited)
}

func TestIsSpawnErrno(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"eagain":  {err: unix.EAGAIN, want: true},
		"enospc":  {err: unix.ENOSPC, want: true},
		"enomem":  {err: unix.ENOMEM, want: false},
		"emfile":  {err: unix.EMFILE, want: false},
		"enfile":  {err: unix.ENFILE, want: false},
		"enoexec": {err: unix.ENOEXEC, want: false},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.want, isSpawnErrno(tc.err))
		})
	}
}

func TestLauncher_Start(t *testing.T) {
	launcher := NewLauncher()

	t.Run("exit-code", func(t *testing.T) {
		h, err := launcher.Start([]string{"sh", "-c", "exit 3"}, StandardIO())
		require.NoError(t, err)

		st, err := h.Wait()
		require.NoError(t, err)
		assert.True(t, st.Exited)
		assert.Equal(t, 3, st.ExitCode)
		assert.True(t, h.Done())
		assert.Equal(t, "exit status 3", st.String())
	})

	t.Run("not-found", func(t *testing.T) {
		_, err := launcher.Start([]string{"myshell-no-such-command-xyz"}, StandardIO())

		var execErr *ExecError
		require.ErrorAs(t, err, &execErr)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("not-executable", func(t *testing.T) {
		path := writeExecutable(t, t.TempDir(), "data", "plain text", 0644)
		_, err := launcher.Start([]string{path}, StandardIO())

		var execErr *ExecError
		assert.ErrorAs(t, err, &execErr)
	})

	t.Run("empty-argv", func(t *testing.T) {
		_, err := launcher.Start(nil, StandardIO())

		var execErr *ExecError
		assert.ErrorAs(t, err, &execErr)
	})

	t.Run("stdout", func(t *testing.T) {
		out, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
		require.NoError(t, err)
		defer out.Close()

		h, err := launcher.Start([]string{"echo", "hello"}, StandardIO().WithStdout(out))
		require.NoError(t, err)
		_, err = h.Wait()
		require.NoError(t, err)

		contents, err := os.ReadFile(out.Name())
		require.NoError(t, err)
		assert.Equal(t, "hello\n", string(contents))
	})

	t.Run("environment", func(t *testing.T) {
		out, err := os.Create(filepath.Join(t.TempDir(), "env.txt"))
		require.NoError(t, err)
		defer out.Close()

		custom := &Launcher{
			Getenv:  os.Getenv,
			Environ: func() []string { return []string{"GREETING=hi"} },
		}
		h, err := custom.Start([]string{"/usr/bin/env"}, StandardIO().WithStdout(out))
		require.NoError(t, err)
		_, err = h.Wait()
		require.NoError(t, err)

		contents, err := os.ReadFile(out.Name())
		require.NoError(t, err)
		assert.Equal(t, "GREETING=hi\n", string(contents))
	})
}

func TestHandle_stopThenKill(t *testing.T) {
	release := Ignore()
	defer release()

	h, err := NewLauncher().Start([]string{"sleep", "30"}, StandardIO())
	require.NoError(t, err)

	// SIGTSTP is discarded in orphaned process groups, SIGSTOP never is.
	require.NoError(t, h.Signal(unix.SIGSTOP))
	st, err := h.Wait()
	require.NoError(t, err)
	assert.True(t, st.StoppedBy(unix.SIGSTOP), st.String())
	assert.False(t, h.Done())

	st, err = h.Terminate()
	require.NoError(t, err)
	assert.True(t, st.KilledBy(unix.SIGKILL), st.String())
	assert.True(t, h.Done())

	_, err = h.Wait()
	assert.ErrorIs(t, err, ErrNoChildren)
	assert.ErrorIs(t, h.Kill(), os.ErrProcessDone)
}

func TestHandle_interrupt(t *testing.T) {
	release := Ignore()
	defer release()

	h, err := NewLauncher().Start([]string{"sleep", "30"}, StandardIO())
	require.NoError(t, err)

	require.NoError(t, h.Signal(unix.SIGINT))
	st, err := h.Wait()
	require.NoError(t, err)
	assert.True(t, st.KilledBy(unix.SIGINT), st.String())
}

func TestWaitAny(t *testing.T) {
	launcher := NewLauncher()

	var handles []*Handle
	for _, script := range []string{"exit 0", "exit 1", "exit 2"} {
		h, err := launcher.Start([]string{"sh", "-c", script}, StandardIO())
		require.NoError(t, err)
		handles = append(handles, h)
	}

	var codes []int
	for range handles {
		h, st, err := WaitAny(handles)
		require.NoError(t, err)
		assert.True(t, h.Done())
		codes = append(codes, st.ExitCode)
	}
	sort.Ints(codes)
	assert.Equal(t, []int{0, 1, 2}, codes)

	_, _, err := WaitAny(handles)
	assert.ErrorIs(t, err, ErrNoChildren)
}

func TestIgnore(t *testing.T) {
	release := Ignore(unix.SIGINT)
	defer release()

	require.NoError(t, unix.Kill(os.Getpid(), unix.SIGINT))
	time.Sleep(50 * time.Millisecond)

	// Still running; releasing twice is harmless.
	release()
	release()
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "exit status 1", ExitedWith(1).String())
	assert.Equal(t, "signal: interrupt", Status{Signaled: true, Signal: unix.SIGINT}.String())
	assert.Equal(t, "unknown", Status{}.String())
	assert.True(t, Status{Stopped: true, StopSignal: unix.SIGTSTP}.StoppedBy(unix.SIGTSTP))
	assert.False(t, ExitedWith(0).KilledBy(unix.SIGINT))
}
