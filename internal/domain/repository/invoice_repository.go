package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Facturas-api/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia para facturas e ítems.
// Todas las operaciones se filtran por dueño: una factura nunca es visible
// ni modificable por otro usuario.
type InvoiceRepository interface {
	// Create persiste cabecera e ítems. Un invoice_number repetido retorna domain.ErrAllocation.
	Create(ctx context.Context, invoice *entity.Invoice) error
	// GetByIDAndOwner retorna (nil, nil) si no existe para ese dueño.
	GetByIDAndOwner(ctx context.Context, id, userID string) (*entity.Invoice, error)
	// ListByOwner ordena de la más reciente a la más antigua (created_at DESC).
	ListByOwner(ctx context.Context, userID string) ([]*entity.Invoice, error)
	// Update reemplaza los campos editables e ítems de una factura Pending.
	// domain.ErrNotFound si no existe; domain.ErrImmutableState si está Paid.
	Update(ctx context.Context, invoice *entity.Invoice) error
	// UpdateStatus es el único camino que puede tocar una factura Paid.
	UpdateStatus(ctx context.Context, id, userID, status string, updatedAt time.Time) error
	// Delete elimina una factura Pending. Mismos errores que Update.
	Delete(ctx context.Context, id, userID string) error
}

// InvoiceSequenceRepository contador explícito de la numeración de facturas.
// Se usa dentro de la misma transacción que inserta la factura.
type InvoiceSequenceRepository interface {
	// LockLastNumber bloquea el contador hasta el fin de la transacción y devuelve
	// el último número asignado ("" si aún no hay facturas).
	LockLastNumber(ctx context.Context) (string, error)
	// SaveLastNumber registra el número recién asignado.
	SaveLastNumber(ctx context.Context, number string) error
}
