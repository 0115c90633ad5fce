package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-borrowing/internal/config"
)

func testConfig(t *testing.T) config.Config {
	return config.Config{
		DBPath:         filepath.Join(t.TempDir(), "cli.db"),
		HistoryBackend: "sqlite",
		EmailDomain:    "@limu.edu.ly",
		LogLevel:       "error",
	}
}

func TestOpenManagerBackends(t *testing.T) {
	for _, backend := range []string{"", "sqlite", "memory"} {
		cfg := testConfig(t)
		cfg.HistoryBackend = backend
		cfg.SeedDemo = true
		mgr, closeAll, err := openManager(context.Background(), cfg)
		require.NoError(t, err, backend)
		books, err := mgr.GetAllBooks()
		require.NoError(t, err)
		assert.Len(t, books, 12)
		closeAll()
	}
}

func TestOpenManagerUnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.HistoryBackend = "etcd"
	_, _, err := openManager(context.Background(), cfg)
	assert.Error(t, err)
}

func TestSeedCommand(t *testing.T) {
	cfg := testConfig(t)
	cmd := newRootCmd(cfg)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"seed"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "Seeded 12 books.\n", out.String())

	// Second run finds everything in place.
	out.Reset()
	cmd = newRootCmd(cfg)
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"seed"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "Seeded 0 books.\n", out.String())
}
