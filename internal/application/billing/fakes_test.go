package billing_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/Facturas-api/internal/application/billing"
	"github.com/jhoicas/Facturas-api/internal/domain"
	"github.com/jhoicas/Facturas-api/internal/domain/entity"
	"github.com/jhoicas/Facturas-api/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// memStore: InvoiceRepository + InvoiceSequenceRepository + InvoiceTxRunner en memoria.
// RunInvoice serializa las transacciones (como el FOR UPDATE del contador) y
// restaura el estado si fn retorna error.
// ──────────────────────────────────────────────────────────────────────────────

type memStore struct {
	txMu     sync.Mutex
	mu       sync.Mutex
	invoices map[string]*entity.Invoice
	last     string
}

func newMemStore() *memStore {
	return &memStore{invoices: map[string]*entity.Invoice{}}
}

var (
	_ repository.InvoiceRepository         = (*memStore)(nil)
	_ repository.InvoiceSequenceRepository = (*memStore)(nil)
	_ billing.InvoiceTxRunner              = (*memStore)(nil)
)

func cloneInvoice(inv *entity.Invoice) *entity.Invoice {
	c := *inv
	c.Items = append([]entity.InvoiceItem(nil), inv.Items...)
	return &c
}

func (s *memStore) RunInvoice(ctx context.Context, fn func(repository.InvoiceRepository, repository.InvoiceSequenceRepository) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := make(map[string]*entity.Invoice, len(s.invoices))
	for k, v := range s.invoices {
		snapshot[k] = cloneInvoice(v)
	}
	lastSnapshot := s.last
	s.mu.Unlock()

	if err := fn(s, s); err != nil {
		s.mu.Lock()
		s.invoices = snapshot
		s.last = lastSnapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memStore) LockLastNumber(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, nil
}

func (s *memStore) SaveLastNumber(_ context.Context, number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = number
	return nil
}

func (s *memStore) Create(_ context.Context, inv *entity.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.invoices {
		if existing.InvoiceNumber == inv.InvoiceNumber {
			return fmt.Errorf("%w: número %s duplicado", domain.ErrAllocation, inv.InvoiceNumber)
		}
	}
	s.invoices[inv.ID] = cloneInvoice(inv)
	return nil
}

func (s *memStore) GetByIDAndOwner(_ context.Context, id, userID string) (*entity.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok || inv.UserID != userID {
		return nil, nil
	}
	return cloneInvoice(inv), nil
}

func (s *memStore) ListByOwner(_ context.Context, userID string) ([]*entity.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Invoice
	for _, inv := range s.invoices {
		if inv.UserID == userID {
			out = append(out, cloneInvoice(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].InvoiceNumber > out[j].InvoiceNumber
	})
	return out, nil
}

func (s *memStore) guarded(id, userID string) (*entity.Invoice, error) {
	inv, ok := s.invoices[id]
	if !ok || inv.UserID != userID {
		return nil, domain.ErrNotFound
	}
	if inv.IsPaid() {
		return nil, domain.ErrImmutableState
	}
	return inv, nil
}

func (s *memStore) Update(_ context.Context, inv *entity.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.guarded(inv.ID, inv.UserID); err != nil {
		return err
	}
	s.invoices[inv.ID] = cloneInvoice(inv)
	return nil
}

func (s *memStore) UpdateStatus(_ context.Context, id, userID, status string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok || inv.UserID != userID {
		return domain.ErrNotFound
	}
	inv.Status = status
	inv.UpdatedAt = updatedAt
	return nil
}

func (s *memStore) Delete(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.guarded(id, userID); err != nil {
		return err
	}
	delete(s.invoices, id)
	return nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.invoices)
}

// ── Usuarios ──────────────────────────────────────────────────────────────────

type memUsers struct {
	users map[string]*entity.User
}

func (m *memUsers) Create(_ context.Context, u *entity.User) error {
	m.users[u.ID] = u
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*entity.User, error) {
	return m.users[id], nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

// ── QR, render y mail ─────────────────────────────────────────────────────────

// fakeQR codifica el payload en JSON dentro del data URL para poder inspeccionarlo.
type fakeQR struct{}

func (fakeQR) Encode(p billing.VerificationPayload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(b), nil
}

func decodeQR(dataURL string) (billing.VerificationPayload, error) {
	var p billing.VerificationPayload
	const prefix = "data:image/png;base64,"
	b, err := base64.StdEncoding.DecodeString(dataURL[len(prefix):])
	if err != nil {
		return p, err
	}
	err = json.Unmarshal(b, &p)
	return p, err
}

type fakeRenderer struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (r *fakeRenderer) Render(_ context.Context, inv *entity.Invoice, issuer entity.Issuer) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.3 " + inv.InvoiceNumber + " " + issuer.FullName), nil
}

type fakeMailer struct {
	mu   sync.Mutex
	err  error
	sent []billing.Delivery
}

func (m *fakeMailer) Deliver(_ context.Context, d billing.Delivery) (*billing.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.sent = append(m.sent, d)
	return &billing.Receipt{MessageID: fmt.Sprintf("<%d@test>", len(m.sent)), To: d.To, SentAt: time.Now()}, nil
}

func (m *fakeMailer) deliveries() []billing.Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]billing.Delivery(nil), m.sent...)
}
