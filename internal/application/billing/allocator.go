package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/Facturas-api/internal/domain"
	"github.com/jhoicas/Facturas-api/internal/domain/invoice"
	"github.com/jhoicas/Facturas-api/internal/domain/repository"
)

// NumberAllocator reserva el siguiente número de factura sobre el contador bloqueado.
// Debe llamarse con el seqRepo de la misma transacción que inserta la factura.
type NumberAllocator struct{}

// NewNumberAllocator construye el asignador.
func NewNumberAllocator() *NumberAllocator { return &NumberAllocator{} }

// Allocate lee el último número, calcula el siguiente y lo deja registrado en el contador.
func (a *NumberAllocator) Allocate(ctx context.Context, seqRepo repository.InvoiceSequenceRepository) (string, error) {
	last, err := seqRepo.LockLastNumber(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: leer contador: %v", domain.ErrAllocation, err)
	}
	next, err := invoice.NextNumber(last)
	if err != nil {
		return "", err
	}
	if err := seqRepo.SaveLastNumber(ctx, next); err != nil {
		return "", fmt.Errorf("%w: guardar contador: %v", domain.ErrAllocation, err)
	}
	return next, nil
}
