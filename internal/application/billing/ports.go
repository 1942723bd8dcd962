package billing

import (
	"context"
	"time"

	"github.com/jhoicas/Facturas-api/internal/domain/entity"
	"github.com/jhoicas/Facturas-api/internal/domain/repository"
)

// InvoiceTxRunner ejecuta una función dentro de una transacción con repos de facturación.
// Todo lo que ocurre en fn se confirma o se descarta junto.
type InvoiceTxRunner interface {
	RunInvoice(ctx context.Context, fn func(
		invoiceRepo repository.InvoiceRepository,
		seqRepo repository.InvoiceSequenceRepository,
	) error) error
}

// DocumentRenderer genera el PDF de una factura. No accede a la DB ni a la red.
// Un data URL de imagen malformado retorna domain.ErrRender.
type DocumentRenderer interface {
	Render(ctx context.Context, invoice *entity.Invoice, issuer entity.Issuer) ([]byte, error)
}

// VerificationEncoder genera el artefacto de verificación (QR) como data URL.
type VerificationEncoder interface {
	Encode(payload VerificationPayload) (string, error)
}

// VerificationPayload resumen de la factura codificado en el QR.
type VerificationPayload struct {
	InvoiceNumber string    `json:"invoiceNumber"`
	Client        string    `json:"client"`
	Amount        string    `json:"amount"`
	IssueDate     time.Time `json:"issueDate"`
}

// Mailer entrega un documento por email. Fallos de transporte retornan domain.ErrDelivery.
type Mailer interface {
	Deliver(ctx context.Context, d Delivery) (*Receipt, error)
}

// Delivery datos de un envío.
type Delivery struct {
	To           string
	Subject      string
	Text         string
	Document     []byte
	DocumentName string
}

// Receipt comprobante de envío.
type Receipt struct {
	MessageID string    `json:"message_id"`
	To        string    `json:"to"`
	SentAt    time.Time `json:"sent_at"`
}
