package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una factura. Paid es terminal para cambios financieros.
const (
	InvoiceStatusPending = "Pending"
	InvoiceStatusPaid    = "Paid"
)

// Frecuencias de recurrencia (solo metadato, no hay scheduler).
const (
	FrequencyWeekly    = "weekly"
	FrequencyMonthly   = "monthly"
	FrequencyQuarterly = "quarterly"
	FrequencyYearly    = "yearly"
)

// Invoice representa una factura emitida por un usuario.
type Invoice struct {
	ID               string
	UserID           string // dueño (usuario autenticado que la creó)
	InvoiceNumber    string // INV-0001, INV-0002, ... nunca se reutiliza
	Client           Client
	Items            []InvoiceItem
	Subtotal         decimal.Decimal
	TaxTotal         decimal.Decimal
	Total            decimal.Decimal
	IssueDate        time.Time
	DueDate          time.Time
	Status           string
	Recurring        Recurring
	Notes            string
	Terms            string
	DigitalSignature string // data URL base64 de la imagen de firma
	QRCode           string // data URL base64 del PNG de verificación, generado en el servidor
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsPaid indica si la factura ya no admite cambios financieros.
func (i *Invoice) IsPaid() bool {
	return i.Status == InvoiceStatusPaid
}

// Client copia de los datos del cliente al momento de facturar.
type Client struct {
	Name    string
	Email   string
	Address string
	Phone   string
}

// InvoiceItem línea de servicio. Amount = Quantity * Rate (sin impuesto).
type InvoiceItem struct {
	ID          string
	InvoiceID   string
	Position    int
	Description string
	Quantity    int
	Rate        decimal.Decimal
	Tax         decimal.Decimal // porcentaje, ej: 19 = 19%
	Amount      decimal.Decimal
}

// Recurring metadatos de recurrencia.
type Recurring struct {
	IsRecurring     bool
	Frequency       string
	NextInvoiceDate *time.Time
}
