package bootstrap

import (
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "tgnotifier/core/config"
	coredatabase "tgnotifier/core/database"
)

func memoryConfig() *coreconfig.Config {
	cfg := &coreconfig.Config{}
	cfg.Telegram.Token = "test-token"
	cfg.Database.Driver = coreconfig.DriverMemory
	cfg.Notify.MinAmountUSD = 500
	cfg.Notify.FarmChangeGap = 1
	return cfg
}

func noopLogger(*coreconfig.Config) error { return nil }

func TestRunNilConfig(t *testing.T) {
	_, err := Run(Options{})
	assert.Error(t, err)
}

func TestRunMemoryDriverSkipsDatabase(t *testing.T) {
	connectCalled := false
	res, err := Run(Options{
		Config:     memoryConfig(),
		LoggerInit: noopLogger,
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			connectCalled = true
			return nil, errors.New("must not be called")
		},
	})
	require.NoError(t, err)
	assert.False(t, connectCalled)
	assert.Nil(t, res.DB)
	assert.NotNil(t, res.Chats)
	assert.NoError(t, res.Close())
}

func TestRunLoggerFailureStopsPipeline(t *testing.T) {
	_, err := Run(Options{
		Config:     memoryConfig(),
		LoggerInit: func(*coreconfig.Config) error { return errors.New("no sink") },
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logger init")
}

func TestRunConnectFailure(t *testing.T) {
	cfg := memoryConfig()
	cfg.Database.Driver = coreconfig.DriverPostgres
	cfg.Database.Host = "localhost"
	cfg.Database.Name = "notifier"

	_, err := Run(Options{
		Config:     cfg,
		LoggerInit: noopLogger,
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			return nil, errors.New("refused")
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database initialization")
}
