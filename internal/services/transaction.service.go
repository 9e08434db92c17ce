package services

import (
	"context"
	"fmt"
	"votuna/internal/database"

	logger "github.com/Bparsons0904/goLogger"
	"gorm.io/gorm"
)

// Transactor runs fn inside one database transaction. Controllers depend on
// this instead of *TransactionService so they can be exercised without a database.
type Transactor interface {
	Execute(ctx context.Context, fn func(context.Context, *gorm.DB) error) error
}

type TransactionService struct {
	db  database.DB
	log logger.Logger
}

func NewTransactionService(db database.DB) *TransactionService {
	return &TransactionService{
		db:  db,
		log: logger.New("TransactionService"),
	}
}

// Execute commits when fn returns nil and rolls back otherwise. A panic inside
// fn is rolled back and returned as an error; if that rollback fails the panic
// is re-raised.
func (ts *TransactionService) Execute(
	ctx context.Context,
	fn func(context.Context, *gorm.DB) error,
) (err error) {
	log := ts.log.TraceFromContext(ctx).Function("Execute")

	tx := ts.db.SQLWithContext(ctx).Begin()
	if tx.Error != nil {
		return log.Err("failed to begin transaction", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			panicErr := log.ErrMsg("panic during transaction: " + fmt.Sprintf("%v", r))

			if rollbackErr := tx.Rollback().Error; rollbackErr != nil {
				log.Er("CRITICAL: failed to rollback after panic", rollbackErr, "panic", r)
				panic(
					fmt.Sprintf(
						"transaction rollback failed: %v (original panic: %v)",
						rollbackErr,
						r,
					),
				)
			}

			log.Info("transaction rolled back after panic")
			err = panicErr
		}
	}()

	if err = fn(ctx, tx); err != nil {
		if rollbackErr := tx.Rollback().Error; rollbackErr != nil {
			log.Er("CRITICAL: failed to rollback after function error", rollbackErr, "originalError", err)
			return log.Error("transaction rollback failed", "rollbackError", rollbackErr, "originalError", err)
		}
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return log.Err("failed to commit transaction", err)
	}

	return nil
}
