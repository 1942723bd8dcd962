package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClientRequest datos del cliente en el body de facturas.
type ClientRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Phone   string `json:"phone,omitempty"`
}

// InvoiceItemRequest línea de servicio. El amount nunca se recibe: se calcula.
type InvoiceItemRequest struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Tax         decimal.Decimal `json:"tax"`
}

// RecurringRequest metadatos de recurrencia.
type RecurringRequest struct {
	IsRecurring     bool   `json:"is_recurring"`
	Frequency       string `json:"frequency,omitempty"`
	NextInvoiceDate string `json:"next_invoice_date,omitempty"` // YYYY-MM-DD
}

// CreateInvoiceRequest body para POST /api/invoices.
type CreateInvoiceRequest struct {
	Client           ClientRequest        `json:"client"`
	Items            []InvoiceItemRequest `json:"items"`
	DueDate          string               `json:"due_date"` // YYYY-MM-DD
	Notes            string               `json:"notes,omitempty"`
	Terms            string               `json:"terms,omitempty"`
	Recurring        *RecurringRequest    `json:"recurring,omitempty"`
	DigitalSignature string               `json:"digital_signature"` // data:image/png;base64,...
}

// UpdateInvoiceRequest body para PUT /api/invoices/:id. Los campos nil no cambian.
// Totales, número, estado y fecha de emisión no son editables.
type UpdateInvoiceRequest struct {
	Client           *ClientRequest       `json:"client,omitempty"`
	Items            []InvoiceItemRequest `json:"items,omitempty"`
	DueDate          *string              `json:"due_date,omitempty"`
	Notes            *string              `json:"notes,omitempty"`
	Terms            *string              `json:"terms,omitempty"`
	Recurring        *RecurringRequest    `json:"recurring,omitempty"`
	DigitalSignature *string              `json:"digital_signature,omitempty"`
}

// UpdateInvoiceStatusRequest body para PATCH /api/invoices/:id/status.
type UpdateInvoiceStatusRequest struct {
	Status string `json:"status"`
}

// InvoiceResponse factura completa en respuestas.
type InvoiceResponse struct {
	ID               string                `json:"id"`
	UserID           string                `json:"user_id"`
	InvoiceNumber    string                `json:"invoice_number"`
	Client           ClientRequest         `json:"client"`
	Items            []InvoiceItemResponse `json:"items"`
	Subtotal         decimal.Decimal       `json:"subtotal"`
	TaxTotal         decimal.Decimal       `json:"tax_total"`
	Total            decimal.Decimal       `json:"total"`
	IssueDate        time.Time             `json:"issue_date"`
	DueDate          string                `json:"due_date"`
	Status           string                `json:"status"`
	Recurring        RecurringRequest      `json:"recurring"`
	Notes            string                `json:"notes,omitempty"`
	Terms            string                `json:"terms,omitempty"`
	DigitalSignature string                `json:"digital_signature"`
	QRCode           string                `json:"qr_code"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// InvoiceItemResponse línea con su monto calculado.
type InvoiceItemResponse struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Tax         decimal.Decimal `json:"tax"`
	Amount      decimal.Decimal `json:"amount"`
}

// DeliveryStatus resultado del envío best-effort al crear una factura.
type DeliveryStatus struct {
	Attempted bool   `json:"attempted"`
	Sent      bool   `json:"sent"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// CreateInvoiceResponse respuesta de POST /api/invoices.
// Success es true aunque el email haya fallado: la factura ya quedó persistida.
type CreateInvoiceResponse struct {
	Success  bool            `json:"success"`
	Data     InvoiceResponse `json:"data"`
	Message  string          `json:"message"`
	Delivery DeliveryStatus  `json:"delivery"`
}

// InvoiceListResponse respuesta de GET /api/invoices.
type InvoiceListResponse struct {
	Success bool              `json:"success"`
	Count   int               `json:"count"`
	Data    []InvoiceResponse `json:"data"`
}

// InvoiceEnvelope respuesta de las operaciones sobre una factura.
type InvoiceEnvelope struct {
	Success bool            `json:"success"`
	Data    InvoiceResponse `json:"data"`
}

// SendInvoiceResponse respuesta de POST /api/invoices/:id/send.
type SendInvoiceResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	MessageID string    `json:"message_id"`
	To        string    `json:"to"`
	SentAt    time.Time `json:"sent_at"`
}
