// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRunConvert(t *testing.T) {
	var out bytes.Buffer
	convertCmd.SetIn(strings.NewReader("# 1. Energy\n\nCoal and **gas**."))
	convertCmd.SetOut(&out)
	require.NoError(t, convertCmd.Flags().Set("depth", "1"))
	t.Cleanup(func() { _ = convertCmd.Flags().Set("depth", "0") })

	require.NoError(t, runConvert(convertCmd, nil))
	assert.Equal(t, "=== Energy ===\n\nCoal and '''gas'''.\n", out.String())
}

func TestRunConvertDepthRange(t *testing.T) {
	require.NoError(t, convertCmd.Flags().Set("depth", "5"))
	t.Cleanup(func() { _ = convertCmd.Flags().Set("depth", "0") })

	err := runConvert(convertCmd, nil)
	assert.ErrorContains(t, err, "out of range")
}

func TestUniqueKeys(t *testing.T) {
	assert.Equal(t, []string{"intro", "cost"}, uniqueKeys([]string{"intro", "cost", "intro"}))
	assert.Nil(t, uniqueKeys(nil))
}

func TestSecretDefault(t *testing.T) {
	loadedSecrets = map[string]string{"anthropic-api-key": "from-file"}
	t.Cleanup(func() { loadedSecrets = nil })

	assert.Equal(t, "explicit", secretDefault("anthropic-api-key", "explicit"))
	assert.Equal(t, "from-file", secretDefault("anthropic-api-key", ""))
	assert.Empty(t, secretDefault("gemini-api-key", ""))
}

// syncCounter counts Sync calls on the wrapped core.
type syncCounter struct {
	zapcore.Core
	syncs *atomic.Int32
}

func (c syncCounter) Sync() error {
	c.syncs.Add(1)
	return c.Core.Sync()
}

func TestExecuteSyncsLoggerOnError(t *testing.T) {
	var syncs atomic.Int32
	core, _ := observer.New(zapcore.DebugLevel)
	buildLogger = func(bool) (*zap.Logger, error) {
		return zap.New(syncCounter{Core: core, syncs: &syncs}), nil
	}
	var stderr bytes.Buffer
	rootCmd.SetErr(&stderr)
	t.Cleanup(func() {
		buildLogger = newConsoleLogger
		logger = zap.NewNop()
		rootCmd.SetArgs(nil)
		rootCmd.SetErr(nil)
		_ = convertCmd.Flags().Set("depth", "0")
	})

	dir := t.TempDir()
	err := execute([]string{"convert", "--depth", "9", "--secrets-dir", dir, "--env-file", filepath.Join(dir, ".env")})
	require.Error(t, err)
	assert.ErrorContains(t, err, "out of range")
	assert.Equal(t, int32(1), syncs.Load())
}
