package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"farmfeed/internal/config"
	"farmfeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestOpen_SQLiteMigratesSchema(t *testing.T) {
	db, err := Open(sqlite.Open(":memory:"), true)
	require.NoError(t, err)

	for _, model := range []any{&models.Post{}, &models.Comment{}, &models.Reaction{}} {
		assert.True(t, db.Migrator().HasTable(model))
	}
	assert.True(t, db.Migrator().HasColumn(&models.Post{}, "media_url"))
	assert.True(t, db.Migrator().HasColumn(&models.Post{}, "media_kind"))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestHealth(t *testing.T) {
	db, err := Open(sqlite.Open(":memory:"), false)
	require.NoError(t, err)

	status := Health(context.Background(), db)
	assert.Equal(t, "up", status["status"])

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	status = Health(context.Background(), db)
	assert.Equal(t, "down", status["status"])
}

func TestDialector(t *testing.T) {
	d, err := Dialector(&config.Config{DBDriver: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	d, err = Dialector(&config.Config{DBDriver: "postgres", DBHost: "localhost"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	_, err = Dialector(&config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
}

func TestGormLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	l := NewGormLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	ctx := context.Background()
	sql := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	l.Trace(ctx, time.Now(), sql, errors.New("syntax error"))
	assert.Contains(t, buf.String(), "GORM query error")

	buf.Reset()
	l.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	assert.Contains(t, buf.String(), "GORM slow query")

	buf.Reset()
	silent := l.LogMode(logger.Silent)
	silent.Trace(ctx, time.Now(), sql, errors.New("ignored"))
	assert.Empty(t, buf.String())
}
