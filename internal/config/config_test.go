package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: test
http_server:
  port: "8181"
ledger_db:
  dsn: postgres://localhost/payments
kafka:
  brokers: ["kafka-1:9092", "kafka-2:9092"]
reconcile:
  order_sync_policy: automatic
  sweep_interval: 30s
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "8181", cfg.HTTPServer.Port)
	assert.Equal(t, "postgres://localhost/payments", cfg.LedgerDB.Dsn)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaService.Brokers)
	assert.Equal(t, "automatic", cfg.Reconcile.OrderSyncPolicy)
	assert.Equal(t, 30*time.Second, cfg.Reconcile.SweepInterval)

	// defaults
	assert.Equal(t, "payment-events", cfg.KafkaService.EventsTopic)
	assert.Equal(t, "+91", cfg.Notification.PhonePrefix)
	assert.Equal(t, 20*time.Second, cfg.Timeouts.Gateway)
	assert.Equal(t, "https://api.stripe.com", cfg.Gateway.BaseURL)
}

func TestLoad_MissingPath(t *testing.T) {
	_, err := Load("")
	assert.ErrorIs(t, err, errConfigPath)

	_, err = Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
