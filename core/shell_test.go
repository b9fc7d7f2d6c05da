package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestShell(t *testing.T, env *testEnv) *Shell {
	t.Helper()

	sh, err := NewShell(env.executor)
	require.NoError(t, err)
	t.Cleanup(func() { sh.Close() })
	return sh
}

func TestShell_RunCommand(t *testing.T) {
	cases := map[string]string{
		"empty":             "",
		"single":            "echo hello",
		"sequential":        "echo a ## echo b ## echo c",
		"sequential-exit":   "echo a ## exit ## echo c",
		"cd-too-many":       "cd a b",
		"cd-not-found":      "cd /nonexistent_path_xyz",
		"empty-segment":     "echo a ## ## echo b",
		"mixed":             "echo a ## echo b && echo c",
		"exit":              "exit",
		"incorrect-command": "myshell_no_such_command_xyz",
		"missing-target":    "echo hi >",
	}

	// Every case runs in its own working directory.
	fixtures, err := filepath.Abs(filepath.Join("testdata", "golden"))
	require.NoError(t, err)

	g := goldie.New(
		t,
		goldie.WithFixtureDir(fixtures),
		goldie.WithDiffEngine(goldie.ColoredDiff),
		goldie.WithTestNameForDir(true),
	)

	for tn, input := range cases {
		t.Run(tn, func(t *testing.T) {
			env := newTestEnv(t)
			sh := newTestShell(t, env)

			status := sh.RunCommand(context.Background(), input)

			out := fmt.Sprintf("status: %d\n--- stdout\n%s--- stderr\n%s", status, env.Stdout(t), env.Stderr(t))
			g.Assert(t, tn, []byte(out))
		})
	}
}

func TestShell_Run(t *testing.T) {
	cases := map[string]struct {
		script       string
		wantStatus   int
		wantCommands int
		wantStdout   []string
		notInStdout  []string
	}{
		"end-of-input": {
			script:       "echo one\n\n\necho two ## echo three\n",
			wantStatus:   0,
			wantCommands: 2,
			wantStdout:   []string{"one\n", "two\nthree\n"},
		},
		"no-trailing-newline": {
			script:       "echo last",
			wantStatus:   0,
			wantCommands: 1,
			wantStdout:   []string{"last\n"},
		},
		"exit": {
			script:       "echo before\nexit\necho never\n",
			wantStatus:   0,
			wantCommands: 2,
			wantStdout:   []string{"before\n", "Exiting shell...\n"},
			notInStdout:  []string{"never"},
		},
		"errors-keep-going": {
			script:       "cd a b\necho a ## ## b\necho after\n",
			wantStatus:   0,
			wantCommands: 3,
			wantStdout:   []string{"after\n"},
		},
		"empty-input": {
			script:       "",
			wantStatus:   0,
			wantCommands: 0,
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			env := newTestEnv(t)

			script := filepath.Join(t.TempDir(), "script")
			require.NoError(t, os.WriteFile(script, []byte(tc.script), 0644))
			stdin, err := os.Open(script)
			require.NoError(t, err)
			defer stdin.Close()
			env.executor.Stdio.Stdin = stdin

			sh := newTestShell(t, env)

			assert.Equal(t, tc.wantStatus, sh.Run(context.Background()))
			assert.Equal(t, tc.wantCommands, sh.Commands())

			stdout := env.Stdout(t)
			for _, want := range tc.wantStdout {
				assert.Contains(t, stdout, want)
			}
			for _, unwanted := range tc.notInStdout {
				assert.NotContains(t, stdout, unwanted)
			}
		})
	}
}

func TestShell_Prompt(t *testing.T) {
	env := newTestEnv(t)
	sh := newTestShell(t, env)
	sh.Env.Getwd = func() (string, error) { return "/home/user", nil }

	assert.Equal(t, "/home/user$", sh.Prompt())

	sh.Config.Prompt.Format = "[%s] "
	assert.Equal(t, "[/home/user] ", sh.Prompt())
}

func TestShell_Prompt_getwdError(t *testing.T) {
	env := newTestEnv(t)
	sh := newTestShell(t, env)
	sh.Env.Getwd = func() (string, error) { return "", os.ErrNotExist }

	assert.Equal(t, "?$", sh.Prompt())
}

func TestShell_RunCommand_stopped(t *testing.T) {
	env := newTestEnv(t)
	sh := newTestShell(t, env)

	status := sh.RunCommand(context.Background(), line(helper(t), "stop", "##", "touch", "after"))

	assert.Equal(t, 0, status)
	assert.Empty(t, env.Stderr(t))
	assert.NoFileExists(t, env.Path("after"))
}
