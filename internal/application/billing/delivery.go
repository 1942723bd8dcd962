package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/Facturas-api/internal/application/dto"
	"github.com/jhoicas/Facturas-api/internal/domain/entity"
)

// deliver genera el PDF y lo envía al email del cliente. Los errores se retornan
// tal cual (domain.ErrRender / domain.ErrDelivery); es la política de Send.
func (uc *InvoiceUseCase) deliver(ctx context.Context, inv *entity.Invoice, user *entity.User) (*Receipt, error) {
	doc, err := uc.renderer.Render(ctx, inv, user.Issuer())
	if err != nil {
		return nil, err
	}
	receipt, err := uc.mailer.Deliver(ctx, Delivery{
		To:           inv.Client.Email,
		Subject:      deliverySubject(inv, user),
		Text:         fmt.Sprintf("Adjunto encontrará la factura %s.", inv.InvoiceNumber),
		Document:     doc,
		DocumentName: inv.InvoiceNumber + ".pdf",
	})
	if err != nil {
		uc.log.Warn().Err(err).
			Str("invoice_number", inv.InvoiceNumber).
			Str("to", inv.Client.Email).
			Msg("envío de factura fallido")
		return nil, err
	}
	uc.log.Info().
		Str("invoice_number", inv.InvoiceNumber).
		Str("to", receipt.To).
		Str("message_id", receipt.MessageID).
		Msg("factura enviada")
	return receipt, nil
}

// deliverBestEffort es la política de Create: la factura ya está persistida,
// así que cualquier fallo se absorbe y se informa en el DeliveryStatus.
// ValidateClient exige el email del cliente, así que siempre hay destinatario.
func (uc *InvoiceUseCase) deliverBestEffort(ctx context.Context, inv *entity.Invoice, user *entity.User) dto.DeliveryStatus {
	receipt, err := uc.deliver(ctx, inv, user)
	if err != nil {
		return dto.DeliveryStatus{Attempted: true, Error: err.Error()}
	}
	return dto.DeliveryStatus{Attempted: true, Sent: true, MessageID: receipt.MessageID}
}

func deliverySubject(inv *entity.Invoice, user *entity.User) string {
	from := user.FullName
	if from == "" {
		from = user.CompanyName
	}
	if from == "" {
		return "Factura " + inv.InvoiceNumber
	}
	return fmt.Sprintf("Factura %s de %s", inv.InvoiceNumber, from)
}
