package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/Facturas-api/internal/domain"
	"github.com/jhoicas/Facturas-api/internal/domain/repository"
)

// PDFUseCase genera el PDF de una factura para descarga directa, sin enviarlo.
type PDFUseCase struct {
	invoiceRepo repository.InvoiceRepository
	userRepo    repository.UserRepository
	renderer    DocumentRenderer
}

// NewPDFUseCase construye el caso de uso inyectando todas sus dependencias.
func NewPDFUseCase(
	invoiceRepo repository.InvoiceRepository,
	userRepo repository.UserRepository,
	renderer DocumentRenderer,
) *PDFUseCase {
	return &PDFUseCase{
		invoiceRepo: invoiceRepo,
		userRepo:    userRepo,
		renderer:    renderer,
	}
}

// DownloadInvoicePDF recupera la factura del usuario y genera su PDF.
//
// Retorna:
//   - (pdfBytes, filename, nil)  si todo sale bien.
//   - domain.ErrNotFound         si la factura no existe o es de otro usuario.
//   - domain.ErrRender           si la firma o el QR guardados no son imágenes válidas.
func (uc *PDFUseCase) DownloadInvoicePDF(ctx context.Context, userID, invoiceID string) (pdfBytes []byte, filename string, err error) {
	// ── 1. Cargar factura ─────────────────────────────────────────────────────
	inv, err := uc.invoiceRepo.GetByIDAndOwner(ctx, invoiceID, userID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener factura: %w", err)
	}
	if inv == nil {
		return nil, "", domain.ErrNotFound
	}

	// ── 2. Cargar emisor ──────────────────────────────────────────────────────
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener usuario: %w", err)
	}
	if user == nil {
		return nil, "", domain.ErrUserNotFound
	}

	// ── 3. Generar PDF ────────────────────────────────────────────────────────
	pdfBytes, err = uc.renderer.Render(ctx, inv, user.Issuer())
	if err != nil {
		return nil, "", err
	}
	return pdfBytes, inv.InvoiceNumber + ".pdf", nil
}
