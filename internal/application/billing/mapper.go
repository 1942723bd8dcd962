package billing

import (
	"fmt"
	"strings"

	"github.com/jhoicas/Facturas-api/internal/application/dto"
	"github.com/jhoicas/Facturas-api/internal/domain"
	"github.com/jhoicas/Facturas-api/internal/domain/entity"
	"github.com/jhoicas/Facturas-api/internal/domain/invoice"
)

func toClient(in dto.ClientRequest) entity.Client {
	return entity.Client{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Address: strings.TrimSpace(in.Address),
		Phone:   strings.TrimSpace(in.Phone),
	}
}

func toItems(in []dto.InvoiceItemRequest) []entity.InvoiceItem {
	items := make([]entity.InvoiceItem, 0, len(in))
	for _, it := range in {
		items = append(items, entity.InvoiceItem{
			Description: strings.TrimSpace(it.Description),
			Quantity:    it.Quantity,
			Rate:        it.Rate,
			Tax:         it.Tax,
		})
	}
	return items
}

func toRecurring(in *dto.RecurringRequest) (entity.Recurring, error) {
	if in == nil || !in.IsRecurring {
		return entity.Recurring{}, nil
	}
	r := entity.Recurring{IsRecurring: true, Frequency: in.Frequency}
	if in.NextInvoiceDate != "" {
		next, err := invoice.ParseDate(in.NextInvoiceDate)
		if err != nil {
			return entity.Recurring{}, fmt.Errorf("next_invoice_date: %w", err)
		}
		r.NextInvoiceDate = &next
	}
	if err := invoice.ValidateRecurring(r); err != nil {
		return entity.Recurring{}, err
	}
	return r, nil
}

// applyUpdate copia los campos presentes en el request. No toca totales,
// número, estado, fecha de emisión ni QR.
func applyUpdate(inv *entity.Invoice, in dto.UpdateInvoiceRequest) error {
	if in.Client != nil {
		client := toClient(*in.Client)
		if err := invoice.ValidateClient(client); err != nil {
			return err
		}
		inv.Client = client
	}
	if in.Items != nil {
		if len(in.Items) == 0 {
			return fmt.Errorf("%w: la factura debe tener al menos un ítem", domain.ErrValidation)
		}
		inv.Items = toItems(in.Items)
	}
	if in.DueDate != nil {
		due, err := invoice.ParseDate(*in.DueDate)
		if err != nil {
			return fmt.Errorf("due_date: %w", err)
		}
		inv.DueDate = due
	}
	if in.Notes != nil {
		inv.Notes = *in.Notes
	}
	if in.Terms != nil {
		inv.Terms = *in.Terms
	}
	if in.Recurring != nil {
		r, err := toRecurring(in.Recurring)
		if err != nil {
			return err
		}
		inv.Recurring = r
	}
	if in.DigitalSignature != nil {
		if err := invoice.ValidateSignature(*in.DigitalSignature); err != nil {
			return err
		}
		inv.DigitalSignature = *in.DigitalSignature
	}
	return nil
}

func toResponse(inv *entity.Invoice) dto.InvoiceResponse {
	resp := dto.InvoiceResponse{
		ID:            inv.ID,
		UserID:        inv.UserID,
		InvoiceNumber: inv.InvoiceNumber,
		Client: dto.ClientRequest{
			Name:    inv.Client.Name,
			Email:   inv.Client.Email,
			Address: inv.Client.Address,
			Phone:   inv.Client.Phone,
		},
		Items:            make([]dto.InvoiceItemResponse, 0, len(inv.Items)),
		Subtotal:         inv.Subtotal,
		TaxTotal:         inv.TaxTotal,
		Total:            inv.Total,
		IssueDate:        inv.IssueDate,
		DueDate:          inv.DueDate.Format("2006-01-02"),
		Status:           inv.Status,
		Recurring:        dto.RecurringRequest{IsRecurring: inv.Recurring.IsRecurring, Frequency: inv.Recurring.Frequency},
		Notes:            inv.Notes,
		Terms:            inv.Terms,
		DigitalSignature: inv.DigitalSignature,
		QRCode:           inv.QRCode,
		CreatedAt:        inv.CreatedAt,
		UpdatedAt:        inv.UpdatedAt,
	}
	if inv.Recurring.NextInvoiceDate != nil {
		resp.Recurring.NextInvoiceDate = inv.Recurring.NextInvoiceDate.Format("2006-01-02")
	}
	for _, it := range inv.Items {
		resp.Items = append(resp.Items, dto.InvoiceItemResponse{
			Description: it.Description,
			Quantity:    it.Quantity,
			Rate:        it.Rate,
			Tax:         it.Tax,
			Amount:      it.Amount,
		})
	}
	return resp
}
