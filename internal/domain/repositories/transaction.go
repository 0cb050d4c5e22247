package repositories

import "context"

// TxFn runs within a transaction carried by its context.
type TxFn func(ctx context.Context) error

// TransactionManager wraps a function in a single all-or-nothing
// transaction. The wiki engines rely on this for every multi-row commit:
// renumbering plans, cascading soft-deletes and cross-aggregate version
// bumps must never partially apply.
type TransactionManager interface {
	ExecTx(ctx context.Context, fn TxFn) error
}
