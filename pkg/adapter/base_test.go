package adapter

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseSQLAdapter_NotConnected(t *testing.T) {
	base := &BaseSQLAdapter{}
	assert.False(t, base.IsConnected())
	assert.NoError(t, base.Close())

	err := base.Exec(context.Background(), "select 1")
	assert.ErrorContains(t, err, "not established")

	_, err = base.Query(context.Background(), "select 1")
	assert.ErrorContains(t, err, "not established")
}

func TestBaseSQLAdapter_Query(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	base := &BaseSQLAdapter{DB: db}
	defer func() { _ = base.Close() }()

	mock.ExpectQuery("select id from t").WillReturnRows(
		sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(2)))

	rows, err := base.Query(context.Background(), "select id from t")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []int64{1, 2}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLAdapter_Exec(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	base := &BaseSQLAdapter{DB: db}
	defer func() { _ = base.Close() }()

	mock.ExpectExec("create table t").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, base.Exec(context.Background(), "create table t (id integer)"))
	assert.True(t, base.IsConnected())
	assert.NoError(t, mock.ExpectationsWereMet())
}
