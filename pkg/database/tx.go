package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TxFunc функция, выполняемая в транзакции
type TxFunc func(tx pgx.Tx) error

// WithTransaction выполняет fn в транзакции: ошибка или паника откатывают её
func WithTransaction(ctx context.Context, db DB, fn TxFunc) error {
	_, err := WithTransactionResult(ctx, db, func(tx pgx.Tx) (struct{}, error) {
		return struct{}{}, fn(tx)
	})
	return err
}

// WithTransactionResult как WithTransaction, но возвращает результат fn
func WithTransactionResult[T any](ctx context.Context, db DB, fn func(tx pgx.Tx) (T, error)) (T, error) {
	var result T

	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	result, err = fn(tx)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return result, fmt.Errorf("tx error: %w, rollback error: %v", err, rbErr)
		}
		return result, err
	}

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result, nil
}
