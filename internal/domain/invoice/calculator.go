// Package invoice contiene las reglas puras de facturación: cálculo de montos,
// numeración consecutiva y validaciones de entrada. No hace I/O.
package invoice

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturas-api/internal/domain"
	"github.com/jhoicas/Facturas-api/internal/domain/entity"
)

var hundred = decimal.NewFromInt(100)

// Totals resultado de Compute.
type Totals struct {
	Items    []entity.InvoiceItem
	Subtotal decimal.Decimal
	TaxTotal decimal.Decimal
	Total    decimal.Decimal
}

// Compute recalcula el monto de cada línea y los totales de la factura.
//
//	Amount   = Quantity * Rate
//	Subtotal = Σ Amount
//	TaxTotal = Σ Amount * Tax / 100
//	Total    = Subtotal + TaxTotal
//
// Los valores no se redondean: el redondeo a 2 decimales ocurre solo al presentar
// (PDF, QR), así recalcular sobre la salida da siempre el mismo resultado.
// Los items de entrada no se modifican.
func Compute(items []entity.InvoiceItem) (*Totals, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: la factura debe tener al menos un ítem", domain.ErrValidation)
	}
	out := &Totals{
		Items:    make([]entity.InvoiceItem, len(items)),
		Subtotal: decimal.Zero,
		TaxTotal: decimal.Zero,
	}
	for i, item := range items {
		if err := validateItem(i, item); err != nil {
			return nil, err
		}
		amount := decimal.NewFromInt(int64(item.Quantity)).Mul(item.Rate)
		item.Amount = amount
		item.Position = i
		out.Items[i] = item
		out.Subtotal = out.Subtotal.Add(amount)
		out.TaxTotal = out.TaxTotal.Add(amount.Mul(item.Tax).Div(hundred))
	}
	out.Total = out.Subtotal.Add(out.TaxTotal)
	return out, nil
}

func validateItem(i int, item entity.InvoiceItem) error {
	switch {
	case strings.TrimSpace(item.Description) == "":
		return fmt.Errorf("%w: ítem %d: la descripción es obligatoria", domain.ErrValidation, i+1)
	case item.Quantity < 1:
		return fmt.Errorf("%w: ítem %d: la cantidad debe ser al menos 1", domain.ErrValidation, i+1)
	case item.Rate.IsNegative():
		return fmt.Errorf("%w: ítem %d: la tarifa no puede ser negativa", domain.ErrValidation, i+1)
	case item.Tax.IsNegative():
		return fmt.Errorf("%w: ítem %d: el impuesto no puede ser negativo", domain.ErrValidation, i+1)
	}
	return nil
}
