package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Facturas-api/internal/application/dto"
	"github.com/jhoicas/Facturas-api/internal/domain"
	"github.com/jhoicas/Facturas-api/internal/domain/entity"
	"github.com/jhoicas/Facturas-api/internal/domain/invoice"
	"github.com/jhoicas/Facturas-api/internal/domain/repository"
)

// Config políticas del ciclo de vida.
type Config struct {
	// AllowStatusReversal permite Paid → Pending. Por defecto Paid es absorbente.
	AllowStatusReversal bool
}

// InvoiceUseCase orquesta el ciclo de vida de una factura:
//
//	Create: validar → numerar → calcular → QR → persistir (tx) → PDF → email (best effort)
//	Update / UpdateStatus / Delete: mutaciones protegidas dentro de una tx
//	Send: leer → PDF → email (los errores de envío se retornan)
//
// Render y envío siempre ocurren después del commit y sin transacción abierta.
type InvoiceUseCase struct {
	txRunner    InvoiceTxRunner
	invoiceRepo repository.InvoiceRepository
	userRepo    repository.UserRepository
	allocator   *NumberAllocator
	qr          VerificationEncoder
	renderer    DocumentRenderer
	mailer      Mailer
	cfg         Config
	log         zerolog.Logger
	now         func() time.Time
}

// NewInvoiceUseCase construye el caso de uso inyectando todas sus dependencias.
func NewInvoiceUseCase(
	txRunner InvoiceTxRunner,
	invoiceRepo repository.InvoiceRepository,
	userRepo repository.UserRepository,
	allocator *NumberAllocator,
	qr VerificationEncoder,
	renderer DocumentRenderer,
	mailer Mailer,
	cfg Config,
	log zerolog.Logger,
) *InvoiceUseCase {
	return &InvoiceUseCase{
		txRunner:    txRunner,
		invoiceRepo: invoiceRepo,
		userRepo:    userRepo,
		allocator:   allocator,
		qr:          qr,
		renderer:    renderer,
		mailer:      mailer,
		cfg:         cfg,
		log:         log,
		now:         time.Now,
	}
}

// Create valida la solicitud, asigna número, calcula totales, genera el QR y persiste
// la factura en una sola transacción. Después del commit intenta enviarla por email:
// un fallo de render o de envío no invalida la factura y se informa en Delivery.
func (uc *InvoiceUseCase) Create(ctx context.Context, userID string, in dto.CreateInvoiceRequest) (*dto.CreateInvoiceResponse, error) {
	client := toClient(in.Client)
	if err := invoice.ValidateClient(client); err != nil {
		return nil, err
	}
	dueDate, err := invoice.ParseDate(in.DueDate)
	if err != nil {
		return nil, fmt.Errorf("due_date: %w", err)
	}
	recurring, err := toRecurring(in.Recurring)
	if err != nil {
		return nil, err
	}
	if err := invoice.ValidateSignature(in.DigitalSignature); err != nil {
		return nil, err
	}
	totals, err := invoice.Compute(toItems(in.Items))
	if err != nil {
		return nil, err
	}
	user, err := uc.issuer(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	inv := &entity.Invoice{
		ID:               uuid.New().String(),
		UserID:           userID,
		Client:           client,
		Items:            totals.Items,
		Subtotal:         totals.Subtotal,
		TaxTotal:         totals.TaxTotal,
		Total:            totals.Total,
		IssueDate:        now,
		DueDate:          dueDate,
		Status:           entity.InvoiceStatusPending,
		Recurring:        recurring,
		Notes:            in.Notes,
		Terms:            in.Terms,
		DigitalSignature: in.DigitalSignature,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	for i := range inv.Items {
		inv.Items[i].ID = uuid.New().String()
		inv.Items[i].InvoiceID = inv.ID
	}

	err = uc.txRunner.RunInvoice(ctx, func(invoiceRepo repository.InvoiceRepository, seqRepo repository.InvoiceSequenceRepository) error {
		number, err := uc.allocator.Allocate(ctx, seqRepo)
		if err != nil {
			return err
		}
		inv.InvoiceNumber = number

		qr, err := uc.qr.Encode(VerificationPayload{
			InvoiceNumber: number,
			Client:        inv.Client.Name,
			Amount:        inv.Total.StringFixed(2),
			IssueDate:     inv.IssueDate,
		})
		if err != nil {
			return fmt.Errorf("generar QR: %w", err)
		}
		inv.QRCode = qr

		return invoiceRepo.Create(ctx, inv)
	})
	if err != nil {
		if errors.Is(err, domain.ErrAllocation) {
			uc.log.Error().Err(err).Str("user_id", userID).Msg("asignación de número de factura fallida")
		}
		return nil, err
	}
	uc.log.Info().
		Str("invoice_id", inv.ID).
		Str("invoice_number", inv.InvoiceNumber).
		Str("total", inv.Total.StringFixed(2)).
		Msg("factura creada")

	delivery := uc.deliverBestEffort(ctx, inv, user)
	message := "Factura creada exitosamente"
	if delivery.Error != "" {
		message = "Factura creada, pero el envío del email falló"
	}
	return &dto.CreateInvoiceResponse{
		Success:  true,
		Data:     toResponse(inv),
		Message:  message,
		Delivery: delivery,
	}, nil
}

// List devuelve las facturas del usuario, de la más reciente a la más antigua.
func (uc *InvoiceUseCase) List(ctx context.Context, userID string) ([]dto.InvoiceResponse, error) {
	list, err := uc.invoiceRepo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.InvoiceResponse, 0, len(list))
	for _, inv := range list {
		out = append(out, toResponse(inv))
	}
	return out, nil
}

// Get obtiene una factura del usuario.
func (uc *InvoiceUseCase) Get(ctx context.Context, userID, id string) (*dto.InvoiceResponse, error) {
	inv, err := uc.load(ctx, uc.invoiceRepo, userID, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(inv)
	return &resp, nil
}

// Update aplica cambios parciales a una factura Pending y recalcula los totales.
// El QR conserva los datos de la creación.
func (uc *InvoiceUseCase) Update(ctx context.Context, userID, id string, in dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error) {
	var updated *entity.Invoice
	err := uc.txRunner.RunInvoice(ctx, func(invoiceRepo repository.InvoiceRepository, _ repository.InvoiceSequenceRepository) error {
		inv, err := uc.load(ctx, invoiceRepo, userID, id)
		if err != nil {
			return err
		}
		if inv.IsPaid() {
			return fmt.Errorf("%w: %s", domain.ErrImmutableState, inv.InvoiceNumber)
		}
		if err := applyUpdate(inv, in); err != nil {
			return err
		}
		totals, err := invoice.Compute(inv.Items)
		if err != nil {
			return err
		}
		inv.Items = totals.Items
		for i := range inv.Items {
			if inv.Items[i].ID == "" {
				inv.Items[i].ID = uuid.New().String()
			}
			inv.Items[i].InvoiceID = inv.ID
		}
		inv.Subtotal, inv.TaxTotal, inv.Total = totals.Subtotal, totals.TaxTotal, totals.Total
		inv.UpdatedAt = uc.now()
		if err := invoiceRepo.Update(ctx, inv); err != nil {
			return err
		}
		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := toResponse(updated)
	return &resp, nil
}

// UpdateStatus cambia el estado entre Pending y Paid. Es el único camino que puede
// tocar una factura pagada; Paid → Pending solo se permite con AllowStatusReversal.
func (uc *InvoiceUseCase) UpdateStatus(ctx context.Context, userID, id, status string) (*dto.InvoiceResponse, error) {
	if err := invoice.ValidateStatus(status); err != nil {
		return nil, err
	}
	var updated *entity.Invoice
	err := uc.txRunner.RunInvoice(ctx, func(invoiceRepo repository.InvoiceRepository, _ repository.InvoiceSequenceRepository) error {
		inv, err := uc.load(ctx, invoiceRepo, userID, id)
		if err != nil {
			return err
		}
		if inv.IsPaid() && status == entity.InvoiceStatusPending && !uc.cfg.AllowStatusReversal {
			return fmt.Errorf("%w: %s no puede volver a %s", domain.ErrImmutableState, inv.InvoiceNumber, status)
		}
		now := uc.now()
		if err := invoiceRepo.UpdateStatus(ctx, inv.ID, userID, status, now); err != nil {
			return err
		}
		inv.Status = status
		inv.UpdatedAt = now
		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("invoice_number", updated.InvoiceNumber).Str("status", status).Msg("estado de factura actualizado")
	resp := toResponse(updated)
	return &resp, nil
}

// Delete elimina una factura Pending.
func (uc *InvoiceUseCase) Delete(ctx context.Context, userID, id string) error {
	return uc.txRunner.RunInvoice(ctx, func(invoiceRepo repository.InvoiceRepository, _ repository.InvoiceSequenceRepository) error {
		inv, err := uc.load(ctx, invoiceRepo, userID, id)
		if err != nil {
			return err
		}
		if inv.IsPaid() {
			return fmt.Errorf("%w: %s", domain.ErrImmutableState, inv.InvoiceNumber)
		}
		return invoiceRepo.Delete(ctx, inv.ID, userID)
	})
}

// Send genera el PDF y lo envía al cliente. A diferencia de Create, cualquier
// error de render o de envío se retorna al llamador.
func (uc *InvoiceUseCase) Send(ctx context.Context, userID, id string) (*Receipt, error) {
	inv, err := uc.load(ctx, uc.invoiceRepo, userID, id)
	if err != nil {
		return nil, err
	}
	user, err := uc.issuer(ctx, userID)
	if err != nil {
		return nil, err
	}
	return uc.deliver(ctx, inv, user)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (uc *InvoiceUseCase) load(ctx context.Context, repo repository.InvoiceRepository, userID, id string) (*entity.Invoice, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: id requerido", domain.ErrValidation)
	}
	inv, err := repo.GetByIDAndOwner(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("obtener factura: %w", err)
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	return inv, nil
}

func (uc *InvoiceUseCase) issuer(ctx context.Context, userID string) (*entity.User, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("obtener usuario: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}
