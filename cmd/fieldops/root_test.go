package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agrosync/fieldops/internal/apperr"
	"github.com/agrosync/fieldops/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`{
  "logLevel": "warn",
  "logsDir": %q,
  "storage": {"type": "sqlite", "sqlite": {"path": %q}},
  "geocode": {"enabled": false}
}`, filepath.Join(dir, "logs"), filepath.Join(dir, "fieldops.db"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(cfg), 0644))
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(viper.Reset)
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	viper.Reset()
	return out.String(), err
}

func TestMark_CreatesActiveSessionAndNumbersAreas(t *testing.T) {
	dir := writeConfig(t)

	out, err := run(t, "mark", "11.0168", "76.9558", "--config", dir, "--user", "grower-1")
	require.NoError(t, err)
	assert.Equal(t, "Area 1: 11.016800°N, 76.955800°E (Location at 11.016800°, 76.955800°)\n", out)

	out, err = run(t, "mark", "--config", dir, "--user", "grower-1", "--", "-33.5", "-70.25")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Area 2: 33.500000°S, 70.250000°W"), out)

	out, err = run(t, "sessions", "list", "--config", dir, "--user", "grower-1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2, "header and the single active session")
	assert.Contains(t, lines[1], "active")

	out, err = run(t, "history", "--config", dir, "--user", "grower-1")
	require.NoError(t, err)
	assert.Contains(t, out, "[active] 2 areas")
	assert.Contains(t, out, "  1. Area 1  11.016800°N, 76.955800°E")
	assert.Contains(t, out, "  2. Area 2  33.500000°S, 70.250000°W")
}

func TestSessionsComplete(t *testing.T) {
	dir := writeConfig(t)

	_, err := run(t, "mark", "10", "20", "--config", dir, "--user", "grower-1")
	require.NoError(t, err)

	out, err := run(t, "sessions", "list", "--config", dir, "--user", "grower-1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	id := strings.Fields(lines[1])[0]

	out, err = run(t, "sessions", "complete", id, "--config", dir, "--user", "grower-1")
	require.NoError(t, err)
	assert.Contains(t, out, id)

	out, err = run(t, "history", "--config", dir, "--user", "grower-1")
	require.NoError(t, err)
	assert.Contains(t, out, "[completed] 1 areas")

	_, err = run(t, "sessions", "complete", id, "--config", dir, "--user", "grower-2")
	assert.True(t, apperr.IsNoRows(err), "other users cannot complete the session: %v", err)
}

func TestCommands_RequireUser(t *testing.T) {
	dir := writeConfig(t)

	_, err := run(t, "history", "--config", dir)
	assert.True(t, apperr.IsAuth(err))

	_, err = run(t, "mark", "10", "20", "--config", dir)
	assert.True(t, apperr.IsAuth(err))
}

func TestMark_InvalidArguments(t *testing.T) {
	dir := writeConfig(t)

	_, err := run(t, "mark", "north", "20", "--config", dir, "--user", "grower-1")
	assert.ErrorContains(t, err, "invalid latitude")

	_, err = run(t, "mark", "95", "20", "--config", dir, "--user", "grower-1")
	assert.Error(t, err)

	_, err = run(t, "mark", "10", "--config", dir, "--user", "grower-1")
	assert.Error(t, err)
}
