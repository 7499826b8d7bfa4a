package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mrerrors "github.com/go-drift/mountref/pkg/errors"
	"github.com/go-drift/mountref/pkg/geometry"
)

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestResolveDefaults(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "go.mod", "module example.com/acme/feed/v2\n\ngo 1.24\n")

	r, err := Resolve(dir)
	require.NoError(t, err)

	assert.Equal(t, "feed", r.Name)
	assert.Equal(t, zerolog.InfoLevel, r.LogLevel)
	assert.Equal(t, DefaultTraceCapacity, r.TraceCapacity)
	assert.False(t, r.TraceEnabled)
	assert.Equal(t, DefaultExtensions, r.Extensions)
	assert.True(t, r.DelegateMounting)
	assert.False(t, r.HasVisible)
}

func TestResolveNameFromDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scroller")
	require.NoError(t, os.Mkdir(dir, 0o755))

	r, err := Resolve(dir)
	require.NoError(t, err)
	assert.Equal(t, "scroller", r.Name)
}

func TestResolveFromFile(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, FileName, `
session:
  name: feed
  renderStateId: 3
log:
  level: trace
trace:
  enabled: true
  capacity: 64
extensions: [transition, Incremental, debug]
visible:
  left: 0
  top: 0
  right: 320
  bottom: 480
`)

	r, err := Resolve(dir)
	require.NoError(t, err)

	assert.Equal(t, "feed", r.Name)
	assert.Equal(t, 3, r.RenderStateID)
	assert.Equal(t, zerolog.TraceLevel, r.LogLevel)
	assert.True(t, r.TraceEnabled)
	assert.Equal(t, 64, r.TraceCapacity)
	assert.Equal(t, []string{"transition", "incremental", "debug"}, r.Extensions)
	assert.True(t, r.DelegateMounting)
	assert.True(t, r.HasVisible)
	assert.Equal(t, geometry.Rect{Right: 320, Bottom: 480}, r.Visible)
}

func TestIncrementalDisabled(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, FileName, "incremental:\n  enabled: false\n")

	r, err := Resolve(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"visibility"}, r.Extensions)
	assert.False(t, r.DelegateMounting)
}

func TestResolveRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown extension", "extensions: [prefetch]\n", `unknown extension "prefetch"`},
		{"duplicate extension", "extensions: [debug, debug]\n", `"debug" listed twice`},
		{"transition after incremental", "extensions: [incremental, transition]\n", `"transition" must be listed before "incremental"`},
		{"bad level", "log:\n  level: loud\n", `unknown log level "loud"`},
		{"negative capacity", "trace:\n  capacity: -1\n", "must not be negative"},
		{"empty visible", "visible:\n  right: 10\n", "is empty"},
		{"malformed", "extensions: {\n", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			write(t, dir, FileName, tt.content)

			_, err := Resolve(dir)
			require.Error(t, err)
			assert.True(t, mrerrors.IsKind(err, mrerrors.KindConfig), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
