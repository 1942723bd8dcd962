package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Facturas-api/internal/domain"
	"github.com/jhoicas/Facturas-api/internal/domain/entity"
	"github.com/jhoicas/Facturas-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `
	id, user_id, invoice_number,
	client_name, client_email, client_address, client_phone,
	subtotal, tax_total, total, issue_date, due_date, status,
	is_recurring, frequency, next_invoice_date,
	notes, terms, digital_signature, qr_code,
	created_at, updated_at`

// Create persiste la cabecera y los ítems. Debe llamarse con un Querier de tx
// para que ambos inserts sean atómicos.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.UserID, inv.InvoiceNumber,
		inv.Client.Name, inv.Client.Email, inv.Client.Address, nullIfEmpty(inv.Client.Phone),
		inv.Subtotal, inv.TaxTotal, inv.Total, inv.IssueDate, inv.DueDate, inv.Status,
		inv.Recurring.IsRecurring, nullIfEmpty(inv.Recurring.Frequency), inv.Recurring.NextInvoiceDate,
		nullIfEmpty(inv.Notes), nullIfEmpty(inv.Terms), inv.DigitalSignature, inv.QRCode,
		inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: invoice_number %s ya existe (%s)", domain.ErrAllocation, inv.InvoiceNumber, constraintName(err))
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return r.insertItems(ctx, inv)
}

func (r *InvoiceRepo) insertItems(ctx context.Context, inv *entity.Invoice) error {
	const query = `
		INSERT INTO invoice_items (id, invoice_id, position, description, quantity, rate, tax, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for i := range inv.Items {
		it := &inv.Items[i]
		if it.ID == "" {
			it.ID = uuid.New().String()
		}
		it.InvoiceID = inv.ID
		_, err := r.q.Exec(ctx, query,
			it.ID, inv.ID, it.Position, it.Description, it.Quantity, it.Rate, it.Tax, it.Amount,
		)
		if err != nil {
			return fmt.Errorf("insert invoice item: %w", err)
		}
	}
	return nil
}

// GetByIDAndOwner obtiene una factura completa con sus ítems. (nil, nil) si no existe
// o pertenece a otro usuario.
func (r *InvoiceRepo) GetByIDAndOwner(ctx context.Context, id, userID string) (*entity.Invoice, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 AND user_id = $2`
	inv, err := scanInvoice(r.q.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	items, err := r.itemsByInvoice(ctx, []string{inv.ID})
	if err != nil {
		return nil, err
	}
	inv.Items = items[inv.ID]
	return inv, nil
}

// ListByOwner lista las facturas del usuario, de la más reciente a la más antigua.
// Los ítems se cargan con una sola consulta adicional.
func (r *InvoiceRepo) ListByOwner(ctx context.Context, userID string) ([]*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + `
		FROM invoices WHERE user_id = $1
		ORDER BY created_at DESC, length(invoice_number) DESC, invoice_number DESC`
	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var list []*entity.Invoice
	var ids []string
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		list = append(list, inv)
		ids = append(ids, inv.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return list, nil
	}

	items, err := r.itemsByInvoice(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, inv := range list {
		inv.Items = items[inv.ID]
	}
	return list, nil
}

func (r *InvoiceRepo) itemsByInvoice(ctx context.Context, ids []string) (map[string][]entity.InvoiceItem, error) {
	const query = `
		SELECT id, invoice_id, position, description, quantity, rate, tax, amount
		FROM invoice_items WHERE invoice_id = ANY($1)
		ORDER BY invoice_id, position`
	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("list invoice items: %w", err)
	}
	defer rows.Close()
	out := make(map[string][]entity.InvoiceItem, len(ids))
	for rows.Next() {
		var it entity.InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.Position, &it.Description, &it.Quantity, &it.Rate, &it.Tax, &it.Amount); err != nil {
			return nil, fmt.Errorf("scan invoice item: %w", err)
		}
		out[it.InvoiceID] = append(out[it.InvoiceID], it)
	}
	return out, rows.Err()
}

// Update reemplaza los campos editables y los ítems. El WHERE excluye las facturas
// pagadas, así que la guarda también aplica a escrituras concurrentes.
func (r *InvoiceRepo) Update(ctx context.Context, inv *entity.Invoice) error {
	query := `
		UPDATE invoices
		SET client_name       = $3,
		    client_email      = $4,
		    client_address    = $5,
		    client_phone      = $6,
		    subtotal          = $7,
		    tax_total         = $8,
		    total             = $9,
		    due_date          = $10,
		    is_recurring      = $11,
		    frequency         = $12,
		    next_invoice_date = $13,
		    notes             = $14,
		    terms             = $15,
		    digital_signature = $16,
		    updated_at        = $17
		WHERE id = $1 AND user_id = $2 AND status <> 'Paid'`
	tag, err := r.q.Exec(ctx, query,
		inv.ID, inv.UserID,
		inv.Client.Name, inv.Client.Email, inv.Client.Address, nullIfEmpty(inv.Client.Phone),
		inv.Subtotal, inv.TaxTotal, inv.Total, inv.DueDate,
		inv.Recurring.IsRecurring, nullIfEmpty(inv.Recurring.Frequency), inv.Recurring.NextInvoiceDate,
		nullIfEmpty(inv.Notes), nullIfEmpty(inv.Terms), inv.DigitalSignature, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.guardError(ctx, inv.ID, inv.UserID)
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, inv.ID); err != nil {
		return fmt.Errorf("delete invoice items: %w", err)
	}
	return r.insertItems(ctx, inv)
}

// UpdateStatus cambia solo el estado. Las reglas de transición las aplica el caso de uso.
func (r *InvoiceRepo) UpdateStatus(ctx context.Context, id, userID, status string, updatedAt time.Time) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE invoices SET status = $3, updated_at = $4 WHERE id = $1 AND user_id = $2`,
		id, userID, status, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina una factura Pending; los ítems caen por ON DELETE CASCADE.
func (r *InvoiceRepo) Delete(ctx context.Context, id, userID string) error {
	tag, err := r.q.Exec(ctx,
		`DELETE FROM invoices WHERE id = $1 AND user_id = $2 AND status <> 'Paid'`, id, userID,
	)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.guardError(ctx, id, userID)
	}
	return nil
}

// guardError distingue por qué una mutación protegida no afectó filas.
func (r *InvoiceRepo) guardError(ctx context.Context, id, userID string) error {
	var status string
	err := r.q.QueryRow(ctx,
		`SELECT status FROM invoices WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get invoice status: %w", err)
	}
	if status == entity.InvoiceStatusPaid {
		return domain.ErrImmutableState
	}
	return domain.ErrNotFound
}

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	var phone, frequency, notes, terms *string
	err := row.Scan(
		&inv.ID, &inv.UserID, &inv.InvoiceNumber,
		&inv.Client.Name, &inv.Client.Email, &inv.Client.Address, &phone,
		&inv.Subtotal, &inv.TaxTotal, &inv.Total, &inv.IssueDate, &inv.DueDate, &inv.Status,
		&inv.Recurring.IsRecurring, &frequency, &inv.Recurring.NextInvoiceDate,
		&notes, &terms, &inv.DigitalSignature, &inv.QRCode,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.Client.Phone = derefStr(phone)
	inv.Recurring.Frequency = derefStr(frequency)
	inv.Notes = derefStr(notes)
	inv.Terms = derefStr(terms)
	return &inv, nil
}
