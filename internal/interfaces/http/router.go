package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Facturas-api/internal/application/auth"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	InvoiceUC InvoiceService
	PDFUC     InvoicePDFService
	AuthUC    *auth.AuthUseCase
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	if deps.AuthUC != nil {
		authGroup := api.Group("/auth")
		authHandler := NewAuthHandler(deps.AuthUC)
		authGroup.Post("/register", authHandler.Register)
		authGroup.Post("/login", authHandler.Login)
	}

	// Invoices (protegido con Bearer Token; el dueño sale del claim user_id)
	invoices := api.Group("/invoices", AuthMiddleware(deps.JWTSecret))
	h := NewInvoiceHandler(deps.InvoiceUC, deps.PDFUC)
	invoices.Post("/", h.Create)
	invoices.Get("/", h.List)
	invoices.Get("/:id", h.GetByID)
	invoices.Put("/:id", h.Update)
	invoices.Patch("/:id/status", h.UpdateStatus)
	invoices.Delete("/:id", h.Delete)
	invoices.Post("/:id/send", h.Send)
	invoices.Get("/:id/pdf", h.DownloadPDF)
}
