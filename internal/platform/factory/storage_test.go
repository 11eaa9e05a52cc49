package factory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standuphq/standup-engine/internal/config"
)

func TestNewStoreMemory(t *testing.T) {
	s, err := NewStore(context.Background(), &config.Config{DBDriver: "memory"})
	require.NoError(t, err)
	assert.NotNil(t, s.Standups())
}

func TestNewStoreSQLite(t *testing.T) {
	cfg := &config.Config{
		DBDriver:   "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "standup.db"),
	}
	s, err := NewStore(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, s.Credentials())
}

func TestNewStoreUnknownDriver(t *testing.T) {
	_, err := NewStore(context.Background(), &config.Config{DBDriver: "oracle"})
	require.Error(t, err)
}
