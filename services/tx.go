package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/golf-arbitri/referee-system/repositories"
)

// TxRunner выполняет функцию в одной транзакции БД: fn получает executor,
// который репозитории используют вместо пула. Ошибка fn откатывает
// транзакцию и возвращается как есть, чтобы sentinel-ошибки доходили до
// вызывающего.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error
}

type sqlTxRunner struct {
	db *sql.DB
}

func NewTxRunner(db *sql.DB) TxRunner {
	return &sqlTxRunner{db: db}
}

func (r *sqlTxRunner) RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
