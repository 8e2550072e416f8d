package db

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDSN(t *testing.T) {
	dsn, err := NormalizeDSN("app:secret@tcp(localhost:3306)/travel")
	require.NoError(t, err)

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.True(t, cfg.ParseTime)
	assert.True(t, cfg.ClientFoundRows)
	assert.Equal(t, "travel", cfg.DBName)

	_, err = NormalizeDSN("not a dsn")
	assert.Error(t, err)
}

func TestRunMigrations(t *testing.T) {
	t.Run("applies every migration in order", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		for _, table := range []string{"users", "travel_requests", "travel_offers", "transactions", "notifications", "conversations", "messages"} {
			mock.ExpectExec("CREATE TABLE IF NOT EXISTS " + table).WillReturnResult(sqlmock.NewResult(0, 0))
		}

		require.NoError(t, RunMigrations(db, zerolog.Nop()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stops at the first failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS travel_requests").WillReturnError(errors.New("access denied"))

		err = RunMigrations(db, zerolog.Nop())
		assert.ErrorContains(t, err, "migration 2 failed")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
