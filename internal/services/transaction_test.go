package services

import (
	"context"
	"errors"
	"testing"
	"votuna/internal/database"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestTransactionService_Execute_Success(t *testing.T) {
	gormDB, mock := setupTestDB(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	service := NewTransactionService(database.DB{SQL: gormDB})

	called := false
	err := service.Execute(context.Background(), func(ctx context.Context, tx *gorm.DB) error {
		called = true
		assert.NotNil(t, tx)
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionService_Execute_RollbackOnError(t *testing.T) {
	gormDB, mock := setupTestDB(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	service := NewTransactionService(database.DB{SQL: gormDB})

	expectedError := errors.New("gateway rejected add")
	err := service.Execute(context.Background(), func(ctx context.Context, tx *gorm.DB) error {
		return expectedError
	})

	assert.Equal(t, expectedError, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionService_Execute_PanicRecovery(t *testing.T) {
	gormDB, mock := setupTestDB(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	service := NewTransactionService(database.DB{SQL: gormDB})

	err := service.Execute(context.Background(), func(ctx context.Context, tx *gorm.DB) error {
		panic("ledger append exploded")
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "panic during transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionService_Execute_BeginFailure(t *testing.T) {
	gormDB, mock := setupTestDB(t)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	service := NewTransactionService(database.DB{SQL: gormDB})

	called := false
	err := service.Execute(context.Background(), func(ctx context.Context, tx *gorm.DB) error {
		called = true
		return nil
	})

	assert.Error(t, err)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}
