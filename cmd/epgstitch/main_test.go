// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkepg/epgstitch/internal/api"
	"github.com/pkepg/epgstitch/internal/config"
	"github.com/pkepg/epgstitch/internal/daemon"
	"github.com/pkepg/epgstitch/internal/jobs"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, dataDir string) string {
	t.Helper()
	content := "dataDir: " + dataDir + `
channels:
  - name: AJK Television
  - name: Local Cable
    id: Local.Cable.pk
    kind: generic
guides:
  - name: epg
    inputs: [channels]
`
	path := filepath.Join(t.TempDir(), "epgstitch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "epgstitch "))
	assert.Contains(t, out, "commit")
}

func TestValidateCommand(t *testing.T) {
	path := writeConfig(t, t.TempDir())

	out, err := execute(t, "--config", path, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "AJK.Television.pk")
	assert.Contains(t, out, "configuration ok: 2 channels, 0 feeds, 1 guides")

	out, err = execute(t, "--config", path, "validate", "--quiet")
	require.NoError(t, err)
	assert.NotContains(t, out, "AJK.Television.pk")
}

func TestValidateCommand_Errors(t *testing.T) {
	_, err := execute(t, "--log-level", "chatty", "validate")
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("days: 12\n"), 0o600))
	_, err = execute(t, "--config", bad, "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "days")
}

func TestRunCommand_WritesFallbackAndGuide(t *testing.T) {
	dataDir := t.TempDir()
	path := writeConfig(t, dataDir)

	out, err := execute(t, "--config", path, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "fallback")
	assert.Contains(t, out, "Local.Cable.pk")
	assert.Contains(t, out, "epg.xml")

	for _, name := range []string{
		"channels/AJK-Television.xml",
		"channels/Local-Cable.xml",
		"epg.xml",
		"epg.xml.gz",
	} {
		assert.FileExists(t, filepath.Join(dataDir, name))
	}

	// a second run the same day leaves the channels alone
	out, err = execute(t, "--config", path, "generate")
	require.NoError(t, err)
	assert.Contains(t, out, "fresh 2")

	out, err = execute(t, "--config", path, "generate", "--force", "--channel", "Local.Cable.pk")
	require.NoError(t, err)
	assert.Contains(t, out, "fallback 1")
	assert.NotContains(t, out, "AJK.Television.pk")
}

func TestGenerateCommand_UnknownChannel(t *testing.T) {
	path := writeConfig(t, t.TempDir())
	_, err := execute(t, "--config", path, "generate", "--channel", "Nope.pk")
	assert.ErrorIs(t, err, jobs.ErrUnknownChannel)
}

func TestWithRunLock(t *testing.T) {
	cfg := config.Default()
	cfg.Daemon.LockFile = filepath.Join(t.TempDir(), "epgstitch.lock")

	ran := false
	require.NoError(t, withRunLock(cfg, func() error { ran = true; return nil }))
	assert.True(t, ran)

	held, err := daemon.AcquireLock(cfg.Daemon.LockFile)
	require.NoError(t, err)
	defer func() { _ = held.Release() }()

	err = withRunLock(cfg, func() error { t.Fatal("ran under a held lock"); return nil })
	assert.ErrorIs(t, err, daemon.ErrLocked)
}

func TestLockedRunner_HeldLockIsRunInProgress(t *testing.T) {
	dataDir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = dataDir
	cfg.Daemon.LockFile = filepath.Join(dataDir, "epgstitch.lock")

	held, err := daemon.AcquireLock(cfg.Daemon.LockFile)
	require.NoError(t, err)
	defer func() { _ = held.Release() }()

	report, err := lockedRunner(cfg, buildDeps(cfg))(context.Background())
	assert.Nil(t, report)
	assert.ErrorIs(t, err, api.ErrRunInProgress)
	assert.ErrorIs(t, err, daemon.ErrLocked)
}

func TestFetchOptions(t *testing.T) {
	h := config.Default().HTTP
	opts := fetchOptions(h)
	assert.Equal(t, uint(3), opts.Attempts)
	assert.Equal(t, int64(256)<<20, opts.MaxBodyBytes)
	assert.Equal(t, h.BreakerReset, opts.BreakerReset)

	h.Retries = 0
	assert.Equal(t, uint(1), fetchOptions(h).Attempts)
}

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]string{"Name", "Count"},
		[][]string{{"alpha", "1"}, {"beta"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "╭"))
	assert.Contains(t, strings.ToUpper(lines[1]), "NAME")
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "beta")

	assert.Empty(t, renderTable(nil, nil, nil))
}
