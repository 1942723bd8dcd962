package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/Facturas-api/internal/domain/repository"
)

var _ repository.InvoiceSequenceRepository = (*InvoiceSequenceRepo)(nil)

// sequenceName identifica la fila del contador global de facturas.
const sequenceName = "invoice"

// InvoiceSequenceRepo contador de numeración sobre la tabla invoice_sequences.
// Solo tiene sentido dentro de una transacción (Querier = pgx.Tx).
type InvoiceSequenceRepo struct {
	q Querier
}

// NewInvoiceSequenceRepository construye el adaptador.
func NewInvoiceSequenceRepository(q Querier) *InvoiceSequenceRepo {
	return &InvoiceSequenceRepo{q: q}
}

// LockLastNumber asegura que exista la fila del contador, la bloquea con FOR UPDATE
// y devuelve el último número. Si la fila no existía se siembra con el mayor número
// ya guardado en invoices (bases creadas antes de existir el contador).
func (r *InvoiceSequenceRepo) LockLastNumber(ctx context.Context) (string, error) {
	const seed = `
		INSERT INTO invoice_sequences (name, last_number, updated_at)
		VALUES ($1, COALESCE((
			SELECT invoice_number FROM invoices
			ORDER BY length(invoice_number) DESC, invoice_number DESC
			LIMIT 1
		), ''), now())
		ON CONFLICT (name) DO NOTHING`
	if _, err := r.q.Exec(ctx, seed, sequenceName); err != nil {
		return "", fmt.Errorf("seed invoice sequence: %w", err)
	}

	var last string
	err := r.q.QueryRow(ctx,
		`SELECT last_number FROM invoice_sequences WHERE name = $1 FOR UPDATE`, sequenceName,
	).Scan(&last)
	if err != nil {
		return "", fmt.Errorf("lock invoice sequence: %w", err)
	}
	return last, nil
}

// SaveLastNumber registra el número asignado. La fila ya está bloqueada por LockLastNumber.
func (r *InvoiceSequenceRepo) SaveLastNumber(ctx context.Context, number string) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE invoice_sequences SET last_number = $2, updated_at = now() WHERE name = $1`,
		sequenceName, number,
	)
	if err != nil {
		return fmt.Errorf("update invoice sequence: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update invoice sequence: fila %q no existe", sequenceName)
	}
	return nil
}
