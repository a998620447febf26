package config_test

import (
	"embed"
	"os"
	"path/filepath"
	"testing"
	"time"

	appconfig "github.com/kadirbelkuyu/dbsaver/internal/config"
	"github.com/kadirbelkuyu/dbsaver/internal/retention"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/*.yaml
var configSamples embed.FS

func writeSample(t *testing.T, name string) string {
	t.Helper()

	data, err := configSamples.ReadFile("testdata/" + name)
	require.NoErrorf(t, err, "failed to read embedded sample %s", name)

	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := appconfig.LoadConfig(writeSample(t, "minimal.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Address)
	assert.Equal(t, "mongo", cfg.Store.Driver)
	assert.Equal(t, "mongodb://mongo.internal:27017", cfg.Store.URI)
	assert.Equal(t, "dbsaver", cfg.Store.Database)
	assert.Equal(t, "db_saves", cfg.Snapshots.Root)
	assert.Equal(t, "mongodump", cfg.Dump.Mongodump)
	assert.Equal(t, "pg_dump", cfg.Dump.PgDump)
	assert.Equal(t, 24*time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, 1, cfg.Scheduler.Workers)
	assert.Equal(t, string(retention.BeyondYearMonthly), cfg.Retention.BeyondYear)
	assert.True(t, cfg.SchedulerEnabled())
	assert.True(t, cfg.CascadeDelete())
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := appconfig.LoadConfig(writeSample(t, "full.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.Equal(t, "secret", cfg.Server.AuthToken)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "/var/lib/dbsaver", cfg.Snapshots.Root)
	assert.Equal(t, 30*time.Minute, cfg.Dump.Timeout)
	assert.Equal(t, 3*time.Second, cfg.Probe.Timeout)
	assert.Equal(t, 12*time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, 4, cfg.Scheduler.Workers)
	assert.Equal(t, string(retention.BeyondYearDelete), cfg.Retention.BeyondYear)
	assert.False(t, cfg.SchedulerEnabled())
	assert.False(t, cfg.CascadeDelete())
	assert.True(t, cfg.Log.Verbose)
}

func TestLoadConfigRejectsUnknownRetention(t *testing.T) {
	_, err := appconfig.LoadConfig(writeSample(t, "invalid.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "beyond_year")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := appconfig.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidateAcceptsRetentionPolicies(t *testing.T) {
	for _, policy := range []retention.BeyondYear{retention.BeyondYearKeep, retention.BeyondYearMonthly, retention.BeyondYearDelete} {
		cfg := appconfig.Default()
		cfg.Retention.BeyondYear = string(policy)
		assert.NoErrorf(t, cfg.Validate(), "policy %s", policy)
	}

	cfg := appconfig.Default()
	cfg.Retention.BeyondYear = "forever"
	assert.ErrorContains(t, cfg.Validate(), "unknown beyond-year policy")
}
