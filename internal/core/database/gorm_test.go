package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMySQLDSN(t *testing.T) {
	dsn, masked, err := normalizeMySQLDSN(
		"jdbc:mysql://root:pw@127.0.0.1:3306/lostfound?characterEncoding=utf8&useSSL=false", "", "")
	require.NoError(t, err)
	assert.Contains(t, dsn, "root:pw@tcp(127.0.0.1:3306)/lostfound")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8")
	assert.NotContains(t, dsn, "useSSL")
	assert.NotContains(t, masked, "pw@")
	assert.Contains(t, masked, "****")
}

func TestNormalizeMySQLDSNKeepsDriverSyntax(t *testing.T) {
	dsn, _, err := normalizeMySQLDSN("app:secret@tcp(db:3306)/lf", "svc", "")
	require.NoError(t, err)
	assert.Contains(t, dsn, "svc:secret@tcp(db:3306)/lf")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestNewGormUnsupportedDriver(t *testing.T) {
	_, err := NewGorm(Opts{Driver: "oracle"})
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestNewGormSQLiteAndMigrate(t *testing.T) {
	db, err := NewGorm(Opts{Driver: "sqlite", DSN: "file::memory:", MaxOpenConns: 1, LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, Migrate(t.Context(), db, "sqlite", MigratorAuto, nil))
	assert.True(t, db.Migrator().HasTable("conversations"))
	assert.True(t, db.Migrator().HasIndex("conversations", "ux_conversations_pair_item"))

	err = Migrate(t.Context(), db, "sqlite", MigratorGoose, nil)
	assert.Error(t, err)
}
