package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDuplicateKey(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'red-shirt' for key 'uq_products_slug'"}
	assert.True(t, IsDuplicateKey(dup))
	assert.True(t, IsDuplicateKey(fmt.Errorf("insert product: %w", dup)))
	assert.False(t, IsDuplicateKey(&mysql.MySQLError{Number: 1452}))
	assert.True(t, IsForeignKeyViolation(&mysql.MySQLError{Number: 1452}))
	assert.False(t, IsDuplicateKey(errors.New("boom")))
}

func TestWithTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	t.Run("commits on success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM cart_items").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := WithTx(context.Background(), db, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(context.Background(), "DELETE FROM cart_items WHERE id = ?", 1)
			return err
		})
		require.NoError(t, err)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()

		sentinel := errors.New("stop")
		err := WithTx(context.Background(), db, func(tx *sql.Tx) error { return sentinel })
		assert.ErrorIs(t, err, sentinel)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatements(t *testing.T) {
	stmts := Statements()
	require.NotEmpty(t, stmts)

	var tables []string
	for _, s := range stmts {
		if strings.HasPrefix(s, "-- ") {
			s = s[strings.Index(s, "\n")+1:]
		}
		assert.NotContains(t, s, ";")
		if strings.Contains(s, "CREATE TABLE") {
			tables = append(tables, s)
		}
	}
	assert.Len(t, tables, 16)
}

func TestNormalizeDSN(t *testing.T) {
	dsn, err := normalizeDSN("shop:secret@tcp(127.0.0.1:3306)/storefront")
	require.NoError(t, err)

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, "storefront", cfg.DBName)
	assert.Equal(t, "127.0.0.1:3306", cfg.Addr)

	_, err = normalizeDSN("not a dsn")
	assert.Error(t, err)
}
