package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quocvuong92/spconsole/internal/config"
	"github.com/quocvuong92/spconsole/internal/console"
)

// isolate keeps the developer's environment and config files out of a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	for _, env := range []string{
		config.EnvBackend, config.EnvEndpoint, config.EnvRequestTimeout,
		config.EnvLogLevel, config.EnvLogFormat, config.EnvLogFile,
		config.EnvDrainTimeout, config.EnvJoinTimeout,
		config.EnvSimUsers, config.EnvSimLatency,
	} {
		t.Setenv(env, "")
	}
	return dir
}

func execute(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := &App{
		cfg:    config.NewConfig(),
		stdin:  strings.NewReader(stdin),
		stdout: &out,
		stderr: &errOut,
	}
	root := NewRootCmd(app)
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

var fastFlags = []string{
	"--log-level", "none",
	"--sim-latency", "1ms",
	"--keepalive", "10ms",
	"--drain-interval", "10ms",
	"--join-timeout", "500ms",
}

func TestRoot_PipedScript(t *testing.T) {
	isolate(t)

	stdout, stderr, err := execute(t, "echo hello world\nhelp\nbogus\nquit\necho never\n", fastFlags...)
	require.NoError(t, err)

	assert.Contains(t, stdout, "hello world\n")
	assert.Contains(t, stdout, "These are the available commands")
	assert.NotContains(t, stdout, "never")

	assert.Contains(t, stderr, console.Banner)
	assert.Contains(t, stderr, "echo returned 0")
	assert.Contains(t, stderr, "help returned 0")
	assert.Contains(t, stderr, "unknown command bogus")
	assert.Contains(t, stderr, "quit returned 0")
}

func TestRoot_EndOfInputExitsCleanly(t *testing.T) {
	isolate(t)

	stdout, _, err := execute(t, "echo last\n", fastFlags...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "last\n")
}

func TestRoot_SimUserFlag(t *testing.T) {
	isolate(t)

	args := append([]string{"--sim-user", "alice=secret"}, fastFlags...)
	_, stderr, err := execute(t, "state\nquit\n", args...)
	require.NoError(t, err)
	assert.Contains(t, stderr, "state returned 0")
}

func TestRoot_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"unknown backend", []string{"--backend", "carrier-pigeon"}, config.ErrInvalidBackend},
		{"http without endpoint", []string{"--backend", "http"}, config.ErrEndpointNotFound},
		{"bad log format", []string{"--log-format", "xml"}, config.ErrInvalidLogFormat},
		{"negative drain timeout", []string{"--drain-timeout", "-1s"}, config.ErrInvalidDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)

			_, stderr, err := execute(t, "", tt.args...)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, stderr, "Error: ")
		})
	}
}

func TestRoot_RejectsArguments(t *testing.T) {
	isolate(t)

	_, _, err := execute(t, "", "stray")
	assert.Error(t, err)
}

func TestRoot_LogFile(t *testing.T) {
	dir := isolate(t)
	logPath := filepath.Join(dir, "logs", "console.log")

	args := []string{"--log-level", "info", "--log-file", logPath, "--sim-latency", "1ms", "--keepalive", "10ms"}
	_, stderr, err := execute(t, "quit\n", args...)
	require.NoError(t, err)
	assert.NotContains(t, stderr, "Console starting")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Console starting")
	assert.Contains(t, string(data), "Program finished")
}

func TestConfigInit(t *testing.T) {
	dir := isolate(t)

	stdout, _, err := execute(t, "", "config", "init")
	require.NoError(t, err)

	path := filepath.Join(dir, "xdg", "spconsole", config.ConfigFileName)
	assert.Contains(t, stdout, path)
	assert.FileExists(t, path)

	_, stderr, err := execute(t, "", "config", "init")
	assert.Error(t, err)
	assert.Contains(t, stderr, "already exists")
}

func TestConfigPaths(t *testing.T) {
	isolate(t)

	stdout, _, err := execute(t, "", "config", "paths")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(stdout, "\n"), "\n")
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[0], filepath.Join(".spconsole", config.ConfigFileName))
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "  "), "no config file should exist: %q", line)
	}
}

func TestVersion(t *testing.T) {
	isolate(t)

	stdout, _, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "spconsole "+Version+"\n", stdout)
}
