package billing_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturas-api/internal/application/billing"
	"github.com/jhoicas/Facturas-api/internal/application/dto"
	"github.com/jhoicas/Facturas-api/internal/domain"
	"github.com/jhoicas/Facturas-api/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testUserID  = "00000000-0000-0000-0000-000000000001"
	otherUserID = "00000000-0000-0000-0000-000000000002"
	testSig     = "data:image/png;base64,iVBORw0KGgo="
)

type fixture struct {
	uc       *billing.InvoiceUseCase
	store    *memStore
	renderer *fakeRenderer
	mailer   *fakeMailer
}

func newFixture(t *testing.T, cfg billing.Config) *fixture {
	t.Helper()
	store := newMemStore()
	users := &memUsers{users: map[string]*entity.User{
		testUserID:  {ID: testUserID, FullName: "Ana Gómez", CompanyName: "Estudio AG", Status: "active"},
		otherUserID: {ID: otherUserID, FullName: "Otro", Status: "active"},
	}}
	renderer := &fakeRenderer{}
	mailer := &fakeMailer{}
	uc := billing.NewInvoiceUseCase(
		store, store, users,
		billing.NewNumberAllocator(),
		fakeQR{}, renderer, mailer,
		cfg, zerolog.Nop(),
	)
	return &fixture{uc: uc, store: store, renderer: renderer, mailer: mailer}
}

func validRequest() dto.CreateInvoiceRequest {
	return dto.CreateInvoiceRequest{
		Client: dto.ClientRequest{Name: "ACME S.A.S.", Email: "pagos@acme.co", Address: "Cra 7 # 10-20"},
		Items: []dto.InvoiceItemRequest{
			{Description: "Design", Quantity: 2, Rate: decimal.NewFromInt(100), Tax: decimal.NewFromInt(10)},
		},
		DueDate:          "2026-11-30",
		Notes:            "Gracias",
		DigitalSignature: testSig,
	}
}

func mustCreate(t *testing.T, f *fixture, userID string) *dto.CreateInvoiceResponse {
	t.Helper()
	resp, err := f.uc.Create(context.Background(), userID, validRequest())
	require.NoError(t, err)
	return resp
}

// ──────────────────────────────────────────────────────────────────────────────
// Create
// ──────────────────────────────────────────────────────────────────────────────

func TestCreate_NumeraCalculaYEnvia(t *testing.T) {
	f := newFixture(t, billing.Config{})
	resp := mustCreate(t, f, testUserID)

	inv := resp.Data
	assert.True(t, resp.Success)
	assert.Equal(t, "INV-0001", inv.InvoiceNumber)
	assert.Equal(t, entity.InvoiceStatusPending, inv.Status)
	assert.Equal(t, "200", inv.Items[0].Amount.String())
	assert.True(t, inv.Subtotal.Equal(decimal.NewFromInt(200)))
	assert.True(t, inv.TaxTotal.Equal(decimal.NewFromInt(20)))
	assert.True(t, inv.Total.Equal(decimal.NewFromInt(220)))
	assert.Equal(t, "2026-11-30", inv.DueDate)
	assert.False(t, inv.IssueDate.IsZero())

	payload, err := decodeQR(inv.QRCode)
	require.NoError(t, err)
	assert.Equal(t, "INV-0001", payload.InvoiceNumber)
	assert.Equal(t, "ACME S.A.S.", payload.Client)
	assert.Equal(t, "220.00", payload.Amount)
	assert.True(t, payload.IssueDate.Equal(inv.IssueDate))

	assert.True(t, resp.Delivery.Attempted)
	assert.True(t, resp.Delivery.Sent)
	assert.Empty(t, resp.Delivery.Error)
	assert.Equal(t, "Factura creada exitosamente", resp.Message)

	sent := f.mailer.deliveries()
	require.Len(t, sent, 1)
	assert.Equal(t, "pagos@acme.co", sent[0].To)
	assert.Equal(t, "INV-0001.pdf", sent[0].DocumentName)
	assert.Equal(t, "Factura INV-0001 de Ana Gómez", sent[0].Subject)
	assert.Contains(t, string(sent[0].Document), "INV-0001")
}

func TestCreate_NumerosConsecutivosEntreUsuarios(t *testing.T) {
	f := newFixture(t, billing.Config{})
	assert.Equal(t, "INV-0001", mustCreate(t, f, testUserID).Data.InvoiceNumber)
	assert.Equal(t, "INV-0002", mustCreate(t, f, otherUserID).Data.InvoiceNumber)
	assert.Equal(t, "INV-0003", mustCreate(t, f, testUserID).Data.InvoiceNumber)
}

func TestCreate_DespuesDe9999(t *testing.T) {
	f := newFixture(t, billing.Config{})
	f.store.last = "INV-9999"
	assert.Equal(t, "INV-10000", mustCreate(t, f, testUserID).Data.InvoiceNumber)
}

// Estado corrupto en el contador: se reporta y no se persiste nada.
func TestCreate_ContadorCorrupto(t *testing.T) {
	f := newFixture(t, billing.Config{})
	f.store.last = "FAC-12"

	_, err := f.uc.Create(context.Background(), testUserID, validRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAllocation)
	assert.Equal(t, 0, f.store.count())
	assert.Equal(t, "FAC-12", f.store.last, "el contador no avanza")
	assert.Empty(t, f.mailer.deliveries())
}

// SMTP caído: la factura se crea igual y queda disponible.
func TestCreate_EnvioFallidoNoInvalidaLaFactura(t *testing.T) {
	f := newFixture(t, billing.Config{})
	f.mailer.err = fmt.Errorf("%w: dial tcp: connection refused", domain.ErrDelivery)

	resp, err := f.uc.Create(context.Background(), testUserID, validRequest())
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.True(t, resp.Delivery.Attempted)
	assert.False(t, resp.Delivery.Sent)
	assert.Contains(t, resp.Delivery.Error, "connection refused")
	assert.Equal(t, "Factura creada, pero el envío del email falló", resp.Message)

	got, err := f.uc.Get(context.Background(), testUserID, resp.Data.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.Data.InvoiceNumber, got.InvoiceNumber)
}

// Un error de render aborta el envío pero la factura ya está persistida.
func TestCreate_RenderFallidoNoEnvia(t *testing.T) {
	f := newFixture(t, billing.Config{})
	f.renderer.err = fmt.Errorf("%w: firma no es una imagen", domain.ErrRender)

	resp, err := f.uc.Create(context.Background(), testUserID, validRequest())
	require.NoError(t, err)
	assert.False(t, resp.Delivery.Sent)
	assert.NotEmpty(t, resp.Delivery.Error)
	assert.Empty(t, f.mailer.deliveries(), "no se intenta enviar sin documento")
	assert.Equal(t, 1, f.store.count())
}

func TestCreate_Validaciones(t *testing.T) {
	cases := map[string]func(r *dto.CreateInvoiceRequest){
		"sin ítems":           func(r *dto.CreateInvoiceRequest) { r.Items = nil },
		"cantidad cero":       func(r *dto.CreateInvoiceRequest) { r.Items[0].Quantity = 0 },
		"tarifa negativa":     func(r *dto.CreateInvoiceRequest) { r.Items[0].Rate = decimal.NewFromInt(-1) },
		"email inválido":      func(r *dto.CreateInvoiceRequest) { r.Client.Email = "nope" },
		"sin email":           func(r *dto.CreateInvoiceRequest) { r.Client.Email = "" },
		"sin vencimiento":     func(r *dto.CreateInvoiceRequest) { r.DueDate = "" },
		"sin firma":           func(r *dto.CreateInvoiceRequest) { r.DigitalSignature = "" },
		"recurrente sin freq": func(r *dto.CreateInvoiceRequest) { r.Recurring = &dto.RecurringRequest{IsRecurring: true, NextInvoiceDate: "2026-12-01"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, billing.Config{})
			req := validRequest()
			mutate(&req)
			_, err := f.uc.Create(context.Background(), testUserID, req)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Equal(t, 0, f.store.count())
			assert.Empty(t, f.store.last, "una solicitud inválida no consume número")
			assert.Empty(t, f.mailer.deliveries())
		})
	}
}

func TestCreate_Recurrente(t *testing.T) {
	f := newFixture(t, billing.Config{})
	req := validRequest()
	req.Recurring = &dto.RecurringRequest{IsRecurring: true, Frequency: entity.FrequencyQuarterly, NextInvoiceDate: "2027-01-15"}

	resp, err := f.uc.Create(context.Background(), testUserID, req)
	require.NoError(t, err)
	assert.True(t, resp.Data.Recurring.IsRecurring)
	assert.Equal(t, "quarterly", resp.Data.Recurring.Frequency)
	assert.Equal(t, "2027-01-15", resp.Data.Recurring.NextInvoiceDate)
}

// Creaciones concurrentes nunca comparten número.
func TestCreate_ConcurrenteSinDuplicados(t *testing.T) {
	f := newFixture(t, billing.Config{})
	const n = 25

	var wg sync.WaitGroup
	numbers := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := f.uc.Create(context.Background(), testUserID, validRequest())
			if err == nil {
				numbers <- resp.Data.InvoiceNumber
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[string]bool{}
	for num := range numbers {
		assert.False(t, seen[num], "número duplicado %s", num)
		seen[num] = true
	}
	assert.Len(t, seen, n)
	assert.True(t, seen["INV-0001"])
	assert.True(t, seen[fmt.Sprintf("INV-%04d", n)])
}

// ──────────────────────────────────────────────────────────────────────────────
// Get / List
// ──────────────────────────────────────────────────────────────────────────────

func TestGet_SoloElDueno(t *testing.T) {
	f := newFixture(t, billing.Config{})
	created := mustCreate(t, f, testUserID)

	_, err := f.uc.Get(context.Background(), otherUserID, created.Data.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.uc.Get(context.Background(), testUserID, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestList_MasRecientePrimero(t *testing.T) {
	f := newFixture(t, billing.Config{})
	mustCreate(t, f, testUserID)
	mustCreate(t, f, otherUserID)
	mustCreate(t, f, testUserID)

	list, err := f.uc.List(context.Background(), testUserID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "INV-0003", list[0].InvoiceNumber)
	assert.Equal(t, "INV-0001", list[1].InvoiceNumber)
}

// ──────────────────────────────────────────────────────────────────────────────
// Update
// ──────────────────────────────────────────────────────────────────────────────

func TestUpdate_RecalculaTotales(t *testing.T) {
	f := newFixture(t, billing.Config{})
	created := mustCreate(t, f, testUserID)

	notes := "Nuevas notas"
	updated, err := f.uc.Update(context.Background(), testUserID, created.Data.ID, dto.UpdateInvoiceRequest{
		Notes: &notes,
		Items: []dto.InvoiceItemRequest{
			{Description: "Design", Quantity: 3, Rate: decimal.NewFromInt(100), Tax: decimal.NewFromInt(10)},
			{Description: "Hosting", Quantity: 1, Rate: decimal.NewFromInt(50)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Nuevas notas", updated.Notes)
	assert.Equal(t, created.Data.InvoiceNumber, updated.InvoiceNumber)
	assert.Equal(t, "350", updated.Subtotal.String())
	assert.Equal(t, "30", updated.TaxTotal.String())
	assert.Equal(t, "380", updated.Total.String())
	assert.Equal(t, created.Data.QRCode, updated.QRCode, "el QR conserva los datos de la creación")
	assert.True(t, updated.IssueDate.Equal(created.Data.IssueDate))

	got, err := f.uc.Get(context.Background(), testUserID, created.Data.ID)
	require.NoError(t, err)
	assert.Equal(t, "380", got.Total.String())
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Hosting", got.Items[1].Description)
}

func TestUpdate_ItemsInvalidosNoCambianNada(t *testing.T) {
	f := newFixture(t, billing.Config{})
	created := mustCreate(t, f, testUserID)

	_, err := f.uc.Update(context.Background(), testUserID, created.Data.ID, dto.UpdateInvoiceRequest{
		Items: []dto.InvoiceItemRequest{{Description: "", Quantity: 1, Rate: decimal.NewFromInt(1)}},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, err := f.uc.Get(context.Background(), testUserID, created.Data.ID)
	require.NoError(t, err)
	assert.Equal(t, "220", got.Total.String())
}

func TestUpdate_FacturaPagadaEsInmutable(t *testing.T) {
	f := newFixture(t, billing.Config{})
	created := mustCreate(t, f, testUserID)
	_, err := f.uc.UpdateStatus(context.Background(), testUserID, created.Data.ID, entity.InvoiceStatusPaid)
	require.NoError(t, err)

	terms := "Neto 30"
	_, err = f.uc.Update(context.Background(), testUserID, created.Data.ID, dto.UpdateInvoiceRequest{Terms: &terms})
	assert.ErrorIs(t, err, domain.ErrImmutableState)

	_, err = f.uc.Update(context.Background(), testUserID, created.Data.ID, dto.UpdateInvoiceRequest{})
	assert.ErrorIs(t, err, domain.ErrImmutableState, "incluso sin cambios")
}

func TestUpdate_OtroDueno(t *testing.T) {
	f := newFixture(t, billing.Config{})
	created := mustCreate(t, f, testUserID)
	_, err := f.uc.Update(context.Background(), otherUserID, created.Data.ID, dto.UpdateInvoiceRequest{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// UpdateStatus
// ──────────────────────────────────────────────────────────────────────────────

func TestUpdateStatus_EstadoInvalido(t *testing.T) {
	f := newFixture(t, billing.Config{})
	created := mustCreate(t, f, testUserID)

	_, err := f.uc.UpdateStatus(context.Background(), testUserID, created.Data.ID, "Cancelled")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	got, err := f.uc.Get(context.Background(), testUserID, created.Data.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPending, got.Status)
}

func TestUpdateStatus_PendingAPaid(t *testing.T) {
	f := newFixture(t, billing.Config{})
	created := mustCreate(t, f, testUserID)

	paid, err := f.uc.UpdateStatus(context.Background(), testUserID, created.Data.ID, entity.InvoiceStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPaid, paid.Status)

	// Paid → Paid es idempotente.
	_, err = f.uc.UpdateStatus(context.Background(), testUserID, created.Data.ID, entity.InvoiceStatusPaid)
	assert.NoError(t, err)
}

func TestUpdateStatus_PaidAPendingRechazado(t *testing.T) {
	f := newFixture(t, billing.Config{})
	created := mustCreate(t, f, testUserID)
	_, err := f.uc.UpdateStatus(context.Background(), testUserID, created.Data.ID, entity.InvoiceStatusPaid)
	require.NoError(t, err)

	_, err = f.uc.UpdateStatus(context.Background(), testUserID, created.Data.ID, entity.InvoiceStatusPending)
	assert.ErrorIs(t, err, domain.ErrImmutableState)
}

func TestUpdateStatus_ReversionHabilitada(t *testing.T) {
	f := newFixture(t, billing.Config{AllowStatusReversal: true})
	created := mustCreate(t, f, testUserID)
	_, err := f.uc.UpdateStatus(context.Background(), testUserID, created.Data.ID, entity.InvoiceStatusPaid)
	require.NoError(t, err)

	back, err := f.uc.UpdateStatus(context.Background(), testUserID, created.Data.ID, entity.InvoiceStatusPending)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPending, back.Status)
}

func TestUpdateStatus_NoEncontrada(t *testing.T) {
	f := newFixture(t, billing.Config{})
	_, err := f.uc.UpdateStatus(context.Background(), testUserID, "no-existe", entity.InvoiceStatusPaid)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Delete
// ──────────────────────────────────────────────────────────────────────────────

func TestDelete_PendingYLuegoNotFound(t *testing.T) {
	f := newFixture(t, billing.Config{})
	created := mustCreate(t, f, testUserID)

	require.NoError(t, f.uc.Delete(context.Background(), testUserID, created.Data.ID))
	_, err := f.uc.Get(context.Background(), testUserID, created.Data.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// El número eliminado no se reutiliza.
	assert.Equal(t, "INV-0002", mustCreate(t, f, testUserID).Data.InvoiceNumber)
}

func TestDelete_PagadaRechazada(t *testing.T) {
	f := newFixture(t, billing.Config{})
	created := mustCreate(t, f, testUserID)
	_, err := f.uc.UpdateStatus(context.Background(), testUserID, created.Data.ID, entity.InvoiceStatusPaid)
	require.NoError(t, err)

	err = f.uc.Delete(context.Background(), testUserID, created.Data.ID)
	assert.ErrorIs(t, err, domain.ErrImmutableState)
	assert.Equal(t, 1, f.store.count())
}

func TestDelete_OtroDueno(t *testing.T) {
	f := newFixture(t, billing.Config{})
	created := mustCreate(t, f, testUserID)
	assert.ErrorIs(t, f.uc.Delete(context.Background(), otherUserID, created.Data.ID), domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Send
// ──────────────────────────────────────────────────────────────────────────────

func TestSend_Exitoso(t *testing.T) {
	f := newFixture(t, billing.Config{})
	created := mustCreate(t, f, testUserID)

	receipt, err := f.uc.Send(context.Background(), testUserID, created.Data.ID)
	require.NoError(t, err)
	assert.Equal(t, "pagos@acme.co", receipt.To)
	assert.NotEmpty(t, receipt.MessageID)
	assert.Len(t, f.mailer.deliveries(), 2, "uno al crear y otro al reenviar")
}

// En Send el fallo de envío es visible para el usuario.
func TestSend_ErrorDeEnvioSeRetorna(t *testing.T) {
	f := newFixture(t, billing.Config{})
	created := mustCreate(t, f, testUserID)
	f.mailer.err = fmt.Errorf("%w: smtp no disponible", domain.ErrDelivery)

	_, err := f.uc.Send(context.Background(), testUserID, created.Data.ID)
	assert.ErrorIs(t, err, domain.ErrDelivery)
}

func TestSend_ErrorDeRenderNoIntentaEnvio(t *testing.T) {
	f := newFixture(t, billing.Config{})
	created := mustCreate(t, f, testUserID)
	f.renderer.err = fmt.Errorf("%w: imagen corrupta", domain.ErrRender)

	_, err := f.uc.Send(context.Background(), testUserID, created.Data.ID)
	assert.ErrorIs(t, err, domain.ErrRender)
	assert.Len(t, f.mailer.deliveries(), 1, "solo el envío de la creación")
}

func TestSend_NoEncontrada(t *testing.T) {
	f := newFixture(t, billing.Config{})
	_, err := f.uc.Send(context.Background(), testUserID, "no-existe")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
