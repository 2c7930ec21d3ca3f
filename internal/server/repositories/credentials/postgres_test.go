package credentials

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophcheck/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

const (
	existsQ = `(?s)^SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+credentials\s+WHERE\s+user_id\s*=\s*\$1\)\s*$`
	saveQ   = `(?s)^INSERT\s+INTO\s+credentials\s*\(user_id,\s*blob\)\s*VALUES\s*\(\$1,\s*\$2\)\s*ON\s+CONFLICT\s*\(user_id\)\s*DO\s+UPDATE.*$`
	loadQ   = `(?s)^SELECT\s+blob\s+FROM\s+credentials\s+WHERE\s+user_id\s*=\s*\$1\s*$`
	deleteQ = `(?s)^DELETE\s+FROM\s+credentials\s+WHERE\s+user_id\s*=\s*\$1\s*$`
)

func TestPostgres_Exists(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(existsQ).WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(existsQ).WithArgs("u2").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(existsQ).WithArgs("u3").WillReturnError(errors.New("db down"))

	ok, err := repo.Exists(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(context.Background(), "u2")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.Exists(context.Background(), "u3")
	assert.ErrorContains(t, err, "db error")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Save(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(saveQ).WithArgs("u1", []byte("blob")).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Save(context.Background(), "u1", []byte("blob")))

	mock.ExpectExec(saveQ).WithArgs("u1", []byte("blob")).WillReturnError(errors.New("disk full"))
	assert.ErrorContains(t, repo.Save(context.Background(), "u1", []byte("blob")), "disk full")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Load(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(loadQ).WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"blob"}).AddRow([]byte("session")))
	mock.ExpectQuery(loadQ).WithArgs("u2").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(loadQ).WithArgs("u3").WillReturnError(errors.New("boom"))

	blob, err := repo.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []byte("session"), blob)

	_, err = repo.Load(context.Background(), "u2")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = repo.Load(context.Background(), "u3")
	assert.ErrorContains(t, err, "boom")
	assert.NotErrorIs(t, err, common.ErrorNotFound)
}

func TestPostgres_Delete(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(deleteQ).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, repo.Delete(context.Background(), "u1"), "absent row is not an error")

	mock.ExpectExec(deleteQ).WithArgs("u1").WillReturnError(errors.New("boom"))
	assert.Error(t, repo.Delete(context.Background(), "u1"))
}
