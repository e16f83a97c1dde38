package main

import (
	"bytes"
	"os"
	"path"
	"slices"
	"testing"

	"github.com/relaymesh/cband/internal/cband"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyDir(t *testing.T) {
	dstDir := t.TempDir()

	err := copyDir("cband/config", dstDir)
	require.NoError(t, err)

	fullPath := path.Join(dstDir, "config.yaml")
	assert.FileExists(t, fullPath)

	info, err := os.Stat(fullPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	// The copied default config must load as is.
	config, err := cband.LoadConfig(fullPath)
	require.NoError(t, err)
	assert.NotEmpty(t, config.ServerName)
}

func TestCopyDirNonexistentSource(t *testing.T) {
	dstDir := t.TempDir()

	err := copyDir("nonexistent/directory", dstDir)
	assert.ErrorContains(t, err, "failed to read source directory")
}

func TestCopyFile(t *testing.T) {
	dstFile := path.Join(t.TempDir(), "copied.yaml")

	err := copyFile("cband/config/config.yaml", dstFile)
	require.NoError(t, err)

	want, err := cfgTemplate.ReadFile("cband/config/config.yaml")
	require.NoError(t, err)

	got, err := os.ReadFile(dstFile)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCopyFileErrors(t *testing.T) {
	t.Run("source file does not exist", func(t *testing.T) {
		err := copyFile("nonexistent.txt", path.Join(t.TempDir(), "dest.txt"))
		assert.ErrorContains(t, err, "failed to open source file")
	})

	t.Run("destination directory does not exist", func(t *testing.T) {
		err := copyFile("cband/config/config.yaml", "/nonexistent/directory/dest.txt")
		assert.ErrorContains(t, err, "failed to create destination file")
	})
}

func TestFindConfigPath(t *testing.T) {
	t.Run("returns valid path", func(t *testing.T) {
		result := findConfigPath()

		validPaths := append([]string{"config"}, cband.ConfigSearchOrder...)
		assert.True(t, slices.Contains(validPaths, result), "unexpected config path %s", result)
	})

	t.Run("finds existing directory", func(t *testing.T) {
		tmpDir := t.TempDir()
		originalDir, err := os.Getwd()
		require.NoError(t, err)
		defer func() { _ = os.Chdir(originalDir) }()

		require.NoError(t, os.Chdir(tmpDir))
		require.NoError(t, os.Mkdir("config", 0755))

		assert.Equal(t, "config", findConfigPath())
	})
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "cband dev, commit none, built at unknown\n", out.String())
}

func TestRun_InvalidConfig(t *testing.T) {
	configDir := t.TempDir()

	err := os.WriteFile(path.Join(configDir, "config.yaml"), []byte("ServerName: irc.test\nReasonDecoding: fixed\n"), 0644)
	require.NoError(t, err)

	err = run(t.Context(), options{configDir: configDir, logLevel: "error"})
	assert.ErrorContains(t, err, "ReasonDecoding")
}

func TestRun_InitSkipsExistingConfig(t *testing.T) {
	configDir := t.TempDir()
	configPath := path.Join(configDir, "config.yaml")

	// Stop before listening by making the existing config invalid.
	require.NoError(t, os.WriteFile(configPath, []byte("Description: kept\n"), 0644))

	err := run(t.Context(), options{configDir: configDir, logLevel: "error", init: true})
	assert.ErrorContains(t, err, "ServerName")

	got, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, "Description: kept\n", string(got))
}
