package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"store_service/internal/domain"
)

type txManager struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewTxManager(db *sql.DB, logger *logrus.Logger) domain.TxManager {
	return &txManager{db: db, log: logger}
}

// WithinTx opens a transaction, binds every repository to it and runs fn.
// Any error out of fn rolls the whole set back, so multi-document mutations
// are observed either fully applied or not at all.
func (m *txManager) WithinTx(ctx context.Context, fn func(r domain.Repositories) error) (err error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		m.log.Errorf("Failed to begin transaction: %v", err)
		return fmt.Errorf("could not start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			m.log.Error("Recovered from panic, rolling back transaction")
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			m.log.Warnf("Rolling back transaction due to error: %v", err)
			if rbErr := tx.Rollback(); rbErr != nil {
				m.log.Errorf("Failed to rollback transaction: %v", rbErr)
			}
		} else {
			if cErr := tx.Commit(); cErr != nil {
				m.log.Errorf("Failed to commit transaction: %v", cErr)
				err = fmt.Errorf("failed to commit transaction: %w", cErr)
			}
		}
	}()

	err = fn(domain.Repositories{
		Products:   newProductRepositoryTx(tx, m.log),
		Categories: newCategoryRepositoryTx(tx, m.log),
		Carts:      newCartRepositoryTx(tx, m.log),
		Bills:      newBillRepositoryTx(tx, m.log),
	})
	return err
}
