package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Complete(t *testing.T) {
	cfg := New()
	cfg.Environment = "prod_br"
	cfg.Databases = []string{"app_production"}
	cfg.Engine = "mysql"
	cfg.StoragePools["main"] = &StoragePool{Name: "main", Type: "s3"}

	assert.NoError(t, cfg.Validate())
}

func TestValidate_Missing(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"environment", func(c *Config) { c.Environment = "" }},
		{"databases", func(c *Config) { c.Databases = nil }},
		{"keep", func(c *Config) { c.Keep = 0 }},
		{"engine", func(c *Config) { c.Engine = "" }},
		{"storage pool", func(c *Config) { c.StoragePools = map[string]*StoragePool{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			cfg.Environment = "prod_br"
			cfg.Databases = []string{"app_production"}
			cfg.Engine = "mysql"
			cfg.StoragePools["main"] = &StoragePool{Name: "main", Type: "local"}

			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMissing)
		})
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("DBKEEP_ENVIRONMENT", "prod_br")
	t.Setenv("DBKEEP_DATABASES", "app_production, analytics_production")
	t.Setenv("DBKEEP_ENGINE", "postgres")

	cfg := New()
	cfg.LoadEnvironment()

	assert.Equal(t, "prod_br", cfg.Environment)
	assert.Equal(t, []string{"app_production", "analytics_production"}, cfg.Databases)
	assert.Equal(t, "postgres", cfg.Engine)
}

func TestLoadEnvironment_FlagsWin(t *testing.T) {
	t.Setenv("DBKEEP_ENVIRONMENT", "from_env")

	cfg := New()
	cfg.Environment = "from_flag"
	cfg.LoadEnvironment()

	assert.Equal(t, "from_flag", cfg.Environment)
}

func TestParseStoragePools_FromArgs(t *testing.T) {
	cfg := New()
	cfg.StorageArgs = []string{
		"main.type=s3",
		"main.bucket=backups",
		"main.region=us-east-1",
	}

	require.NoError(t, cfg.ParseStoragePools())

	pool := cfg.StoragePools["main"]
	require.NotNil(t, pool)
	assert.Equal(t, "s3", pool.Type)
	assert.Equal(t, "backups", pool.Options["bucket"])

	// Single pool becomes the default
	assert.Equal(t, "main", cfg.DefaultStorage)
}

func TestParseStoragePools_FromEnv(t *testing.T) {
	t.Setenv("DBKEEP_STORAGE_MAIN_TYPE", "s3")
	t.Setenv("DBKEEP_STORAGE_MAIN_BUCKET", "backups")
	t.Setenv("DBKEEP_STORAGE_MAIN_ACCESS_KEY", "abc")

	cfg := New()
	require.NoError(t, cfg.ParseStoragePools())

	pool := cfg.StoragePools["main"]
	require.NotNil(t, pool)
	assert.Equal(t, "s3", pool.Type)
	assert.Equal(t, "backups", pool.Options["bucket"])
	assert.Equal(t, "abc", pool.Options["access-key"])
}

func TestParseStoragePools_ArgsOverrideEnv(t *testing.T) {
	t.Setenv("DBKEEP_STORAGE_MAIN_TYPE", "local")
	t.Setenv("DBKEEP_STORAGE_MAIN_PATH", "/env/path")

	cfg := New()
	cfg.StorageArgs = []string{"main.path=/flag/path"}

	require.NoError(t, cfg.ParseStoragePools())
	assert.Equal(t, "/flag/path", cfg.StoragePools["main"].Options["path"])
}

func TestParseStoragePools_MissingType(t *testing.T) {
	cfg := New()
	cfg.StorageArgs = []string{"main.bucket=backups"}

	assert.Error(t, cfg.ParseStoragePools())
}

func TestParseStoragePools_UnknownDefault(t *testing.T) {
	cfg := New()
	cfg.DefaultStorage = "nope"
	cfg.StorageArgs = []string{"main.type=local", "main.path=/tmp"}

	assert.Error(t, cfg.ParseStoragePools())
}

func TestParseEngineOptions(t *testing.T) {
	t.Setenv("DBKEEP_ENGINE_HOST", "db.internal")
	t.Setenv("DBKEEP_ENGINE_PASSWORD", "secret")

	cfg := New()
	cfg.EngineArgs = []string{"port=5433"}

	require.NoError(t, cfg.ParseEngineOptions())
	assert.Equal(t, "db.internal", cfg.EngineOptions["host"])
	assert.Equal(t, "secret", cfg.EngineOptions["password"])
	assert.Equal(t, "5433", cfg.EngineOptions["port"])
}

func TestParseNotifyConfigs(t *testing.T) {
	cfg := New()
	cfg.NotifyArgs = []string{
		"ops.type=discord",
		"ops.webhook-url=https://discord.test/hook",
	}

	require.NoError(t, cfg.ParseNotifyConfigs())

	nc := cfg.NotifyConfigs["ops"]
	require.NotNil(t, nc)
	assert.Equal(t, "discord", nc.Type)
	assert.Equal(t, "https://discord.test/hook", nc.Options["webhook-url"])
}

func TestIsTracked(t *testing.T) {
	cfg := New()
	cfg.Databases = []string{"a", "b"}

	assert.True(t, cfg.IsTracked("a"))
	assert.False(t, cfg.IsTracked("c"))
}
