package billing_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturas-api/internal/application/billing"
	"github.com/jhoicas/Facturas-api/internal/domain"
	"github.com/jhoicas/Facturas-api/internal/domain/entity"
)

func TestDownloadInvoicePDF(t *testing.T) {
	f := newFixture(t, billing.Config{})
	created := mustCreate(t, f, testUserID)
	users := &memUsers{users: map[string]*entity.User{
		testUserID: {ID: testUserID, FullName: "Ana Gómez"},
	}}
	renderer := &fakeRenderer{}
	uc := billing.NewPDFUseCase(f.store, users, renderer)

	pdf, name, err := uc.DownloadInvoicePDF(context.Background(), testUserID, created.Data.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-0001.pdf", name)
	assert.Contains(t, string(pdf), "Ana Gómez")

	_, _, err = uc.DownloadInvoicePDF(context.Background(), otherUserID, created.Data.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	renderer.err = fmt.Errorf("%w: qr corrupto", domain.ErrRender)
	_, _, err = uc.DownloadInvoicePDF(context.Background(), testUserID, created.Data.ID)
	assert.ErrorIs(t, err, domain.ErrRender)
}
