package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestMySQLDSN_URLForm(t *testing.T) {
	got, err := MySQLDSN("mysql://app:secret@db:3306/natours?timeout=5s", "", "")
	require.NoError(t, err)
	assert.Contains(t, got, "app:secret@tcp(db:3306)/natours?")
	assert.Contains(t, got, "parseTime=true")
	assert.Contains(t, got, "charset=utf8mb4")
	assert.Contains(t, got, "timeout=5s")
}

func TestMySQLDSN_DriverFormWithOverride(t *testing.T) {
	got, err := MySQLDSN("u:p@tcp(127.0.0.1:3306)/natours", "root", "pw")
	require.NoError(t, err)
	assert.Contains(t, got, "root:pw@tcp(127.0.0.1:3306)/natours?")
	assert.Contains(t, got, "parseTime=true")
}

func TestMySQLDSN_Invalid(t *testing.T) {
	_, err := MySQLDSN("not a dsn", "", "")
	assert.Error(t, err)
}

func TestNewGorm_UnsupportedDriver(t *testing.T) {
	_, err := NewGorm(Opts{Driver: "mongodb"})
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, logLevel("silent"))
	assert.Equal(t, logger.Info, logLevel("info"))
	assert.Equal(t, logger.Warn, logLevel(""))
}
