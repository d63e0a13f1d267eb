package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"farmfeed/internal/config"
	"farmfeed/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:        "test",
		DBDriver:   "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "feed.db"),
	}
}

func TestInitRuntime_SQLiteWithoutRedis(t *testing.T) {
	rt, err := InitRuntimeWithConfig(sqliteConfig(t), Options{ServiceName: "farmfeed-test", SkipRedis: true})
	require.NoError(t, err)

	assert.Nil(t, rt.Redis)
	assert.True(t, rt.DB.Migrator().HasTable(&models.Post{}))
	assert.True(t, rt.DB.Migrator().HasTable(&models.Reaction{}))

	require.NoError(t, rt.Close(context.Background()))
}

func TestInitRuntime_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := sqliteConfig(t)
	cfg.RedisURL = mr.Addr()

	rt, err := InitRuntimeWithConfig(cfg, Options{ServiceName: "farmfeed-test"})
	require.NoError(t, err)
	require.NotNil(t, rt.Redis)
	assert.NoError(t, rt.Redis.Ping(context.Background()).Err())

	require.NoError(t, rt.Close(context.Background()))
}

func TestInitRuntime_BadDriver(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.DBDriver = "mysql"
	_, err := InitRuntimeWithConfig(cfg, Options{SkipRedis: true})
	assert.Error(t, err)
}
