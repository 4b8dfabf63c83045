package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"indicadores/internal/config"
)

func TestGet_NamedAndCached(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := FromLogger(zap.New(core), config.LoggingConfig{})

	api := l.Get(CategoryAPI)
	assert.Same(t, api, l.Get(CategoryAPI))

	api.Info("posting")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "api", logs.All()[0].LoggerName)
}

func TestGet_DisabledCategoryIsNop(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := FromLogger(zap.New(core), config.LoggingConfig{
		Categories: map[string]bool{"watch": false, "form": true},
	})

	l.Get(CategoryWatch).Info("hidden")
	l.Get(CategoryForm).Info("shown")
	l.Get(CategoryBatch).Info("shown too")

	assert.Equal(t, 2, logs.Len())
}

func TestNew_InteractiveWithoutFileIsSilent(t *testing.T) {
	l, err := New(config.LoggingConfig{Level: "debug", Format: "console"}, Options{Interactive: true})
	require.NoError(t, err)
	assert.False(t, l.Root().Core().Enabled(zap.ErrorLevel))
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indicadores.log")
	l, err := New(config.LoggingConfig{Level: "info", Format: "json", File: path}, Options{Interactive: true})
	require.NoError(t, err)

	l.Get(CategoryBoot).Info("started", zap.String("backend", "http://localhost:5000"))
	l.Get(CategoryBoot).Debug("filtered by level")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"logger":"boot"`)
	assert.Contains(t, out, `"msg":"started"`)
	assert.False(t, strings.Contains(out, "filtered by level"))
}

func TestNew_VerboseForcesDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	l, err := New(config.LoggingConfig{Level: "error", Format: "console", File: path}, Options{Verbose: true})
	require.NoError(t, err)
	assert.True(t, l.Root().Core().Enabled(zap.DebugLevel))
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "loud"}, Options{})
	assert.Error(t, err)
}
