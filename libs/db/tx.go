package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// InTx runs fn inside a transaction. fn's error rolls back; otherwise the tx is committed.
func (p *Pool) InTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := p.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
