// Package pdf genera el documento PDF de una factura.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  INVOICE                     │  N° Factura / Emisión / Vence │
//	│  ─────────────────────────────────────────────────────────  │
//	│  DE: emisor                  │  FACTURAR A: cliente          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Descripción | Cant | Tarifa | Imp% | Monto           │
//	│  ─────────────────────────────────────────────────────────  │
//	│                          Subtotal / Impuestos / Total        │
//	│  Notas / Términos                                            │
//	│  Firma                       │  QR de verificación           │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // registra el decoder para validar firmas JPEG
	_ "image/png"  // registra el decoder para validar firmas y QR PNG
	"strconv"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	mimage "github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/jhoicas/Facturas-api/internal/application/billing"
	"github.com/jhoicas/Facturas-api/internal/domain"
	"github.com/jhoicas/Facturas-api/internal/domain/entity"
	"github.com/jhoicas/Facturas-api/internal/domain/invoice"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

const dateLayout = "2006-01-02"

var _ billing.DocumentRenderer = (*MarotoPDFGenerator)(nil)

// MarotoPDFGenerator implementa billing.DocumentRenderer usando Maroto v2.
type MarotoPDFGenerator struct {
	printer    *message.Printer
	decimalSep string
}

// NewMarotoPDFGenerator construye el generador. locale define el formato de los
// montos (ej: "en-US" → 1,234.50; "es-CO" → 1.234,50).
func NewMarotoPDFGenerator(locale string) *MarotoPDFGenerator {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	p := message.NewPrinter(tag)
	sep := strings.TrimSuffix(strings.TrimPrefix(p.Sprint(number.Decimal(1.5, number.Scale(1))), "1"), "5")
	return &MarotoPDFGenerator{printer: p, decimalSep: sep}
}

// Money formatea un monto redondeado a 2 decimales. Solo para presentación.
// Los dígitos salen de decimal.StringFixed; x/text solo agrupa la parte entera.
func (g *MarotoPDFGenerator) Money(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return d.StringFixed(2)
	}
	out := g.printer.Sprint(number.Decimal(n)) + g.decimalSep + frac
	if d.IsNegative() && fixed != "0.00" {
		out = "-" + out
	}
	return out
}

// Render genera el PDF y devuelve sus bytes. Las imágenes embebidas (firma y QR)
// se validan antes de maquetar: una imagen corrupta retorna domain.ErrRender.
func (g *MarotoPDFGenerator) Render(ctx context.Context, inv *entity.Invoice, issuer entity.Issuer) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	signature, err := decodeImage("firma", inv.DigitalSignature)
	if err != nil {
		return nil, err
	}
	var qrImage *embeddedImage
	if inv.QRCode != "" {
		if qrImage, err = decodeImage("qr", inv.QRCode); err != nil {
			return nil, err
		}
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(12).WithRightMargin(12).
		WithTopMargin(12).WithBottomMargin(12).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Invoice "+inv.InvoiceNumber, true).
		WithAuthor(nonEmpty(issuer.CompanyName, issuer.FullName), true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(inv))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(partiesRow(inv.Client, issuer))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, it := range inv.Items {
		m.AddRows(g.itemRow(it))
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(g.totalsRow(inv))

	for _, r := range notesRows(inv) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(4))
	m.AddRows(footerRow(signature, qrImage))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("%w: generar documento: %v", domain.ErrRender, err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(inv *entity.Invoice) core.Row {
	return row.New(20).Add(
		col.New(6).Add(
			text.New("INVOICE", props.Text{
				Style: fontstyle.Bold, Size: 20, Color: colorPrimary, Top: 2,
			}),
		),
		col.New(6).Add(
			text.New(inv.InvoiceNumber, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 1,
			}),
			text.New("Issue date: "+inv.IssueDate.Format(dateLayout), props.Text{
				Size: 8, Align: align.Right, Top: 8, Color: colorGray,
			}),
			text.New("Due date: "+inv.DueDate.Format(dateLayout), props.Text{
				Size: 8, Align: align.Right, Top: 13, Color: colorGray,
			}),
		),
	)
}

func partiesRow(client entity.Client, issuer entity.Issuer) core.Row {
	block := func(title string, lines ...string) core.Col {
		c := col.New(6).Add(text.New(title, props.Text{
			Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
		}))
		top := 6.0
		for _, l := range lines {
			if l == "" {
				continue
			}
			c.Add(text.New(l, props.Text{Size: 8, Top: top}))
			top += 4.5
		}
		return c
	}
	return row.New(26).Add(
		block("FROM", issuer.FullName, issuer.CompanyName, issuer.CompanyAddress, issuer.CompanyPhone),
		block("BILL TO", client.Name, client.Email, client.Address, client.Phone),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Description", 5, align.Left),
		h("Qty", 1, align.Center),
		h("Rate", 2, align.Right),
		h("Tax %", 1, align.Center),
		h("Amount", 3, align.Right),
	)
}

func (g *MarotoPDFGenerator) itemRow(it entity.InvoiceItem) core.Row {
	cell := func(size int, s string, a align.Type) core.Col {
		return col.New(size).Add(text.New(s, props.Text{Size: 8, Align: a, Top: 1, Left: 1, Right: 1}))
	}
	return row.New(7).Add(
		cell(5, it.Description, align.Left),
		cell(1, fmt.Sprintf("%d", it.Quantity), align.Center),
		cell(2, g.Money(it.Rate), align.Right),
		cell(1, it.Tax.String(), align.Center),
		cell(3, g.Money(it.Amount), align.Right),
	)
}

// totalsRow: bloque de totales alineado a la derecha.
func (g *MarotoPDFGenerator) totalsRow(inv *entity.Invoice) core.Row {
	label := func(s string, top float64, bold bool) core.Component {
		p := props.Text{Size: 9, Align: align.Right, Right: 2, Top: top}
		if bold {
			p.Style = fontstyle.Bold
			p.Color = colorPrimary
		}
		return text.New(s, p)
	}
	return row.New(20).Add(
		col.New(6),
		col.New(3).Add(
			label("Subtotal:", 1, false),
			label("Tax:", 6, false),
			label("Total:", 12, true),
		),
		col.New(3).Add(
			label(g.Money(inv.Subtotal), 1, false),
			label(g.Money(inv.TaxTotal), 6, false),
			label(g.Money(inv.Total), 12, true),
		),
	)
}

func notesRows(inv *entity.Invoice) []core.Row {
	var rows []core.Row
	add := func(title, body string) {
		if body == "" {
			return
		}
		rows = append(rows, row.New(12).Add(col.New(12).Add(
			text.New(title, props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(body, props.Text{Size: 8, Top: 6, Color: colorGray}),
		)))
	}
	add("Notes", inv.Notes)
	add("Terms", inv.Terms)
	return rows
}

func footerRow(signature, qr *embeddedImage) core.Row {
	sigCol := col.New(6).Add(
		text.New("Signature", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary}),
		mimage.NewFromBytes(signature.data, signature.ext, props.Rect{Percent: 70, Top: 6}),
	)
	qrCol := col.New(6)
	if qr != nil {
		qrCol.Add(mimage.NewFromBytes(qr.data, qr.ext, props.Rect{Percent: 90, Center: true}))
	}
	return row.New(45).Add(sigCol, qrCol)
}

// ── helpers ───────────────────────────────────────────────────────────────────

type embeddedImage struct {
	data []byte
	ext  extension.Type
}

// decodeImage extrae los bytes del data URL y verifica que sean una imagen
// PNG o JPEG legible.
func decodeImage(field, dataURL string) (*embeddedImage, error) {
	_, data, err := invoice.DecodeDataURL(dataURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrRender, field, err)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: imagen inválida: %v", domain.ErrRender, field, err)
	}
	switch format {
	case "png":
		return &embeddedImage{data: data, ext: extension.Png}, nil
	case "jpeg":
		return &embeddedImage{data: data, ext: extension.Jpg}, nil
	}
	return nil, fmt.Errorf("%w: %s: formato %q no soportado", domain.ErrRender, field, format)
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
