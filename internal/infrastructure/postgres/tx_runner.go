package postgres

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facturable/verifactu-sif/internal/application/invoicing"
)

var _ invoicing.ChainTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL,
// serializando los appends de un mismo emisor con un advisory lock: la
// cadena de un obligado avanza de uno en uno aunque lleguen registros en
// paralelo.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, toma el lock del emisor, ejecuta fn con un repo
// atado a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, issuerID string, fn func(repo invoicing.ChainRepository) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock transaccional por emisor: se libera solo en Commit/Rollback
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, issuerLockKey(issuerID)); err != nil {
		return fmt.Errorf("lock issuer chain: %w", err)
	}

	if err := fn(NewChainRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// issuerLockKey proyecta el NIF del emisor a la clave int64 que pide
// pg_advisory_xact_lock.
func issuerLockKey(issuerID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(issuerID))
	return int64(h.Sum64())
}
