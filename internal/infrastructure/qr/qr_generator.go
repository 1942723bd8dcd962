// Package qr genera el código QR de verificación que se guarda con cada factura.
package qr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"

	"github.com/jhoicas/Facturas-api/internal/application/billing"
	"github.com/jhoicas/Facturas-api/internal/domain/invoice"
)

// DefaultSize lado en píxeles del PNG generado.
const DefaultSize = 256

var _ billing.VerificationEncoder = (*Generator)(nil)

// Generator implementa billing.VerificationEncoder con boombuler/barcode.
type Generator struct {
	size  int
	level qr.ErrorCorrectionLevel
}

// NewGenerator construye el generador. size <= 0 usa DefaultSize.
func NewGenerator(size int) *Generator {
	if size <= 0 {
		size = DefaultSize
	}
	return &Generator{size: size, level: qr.M}
}

// Content es el texto codificado en el QR: el payload en JSON.
func Content(p billing.VerificationPayload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("qr: serializar payload: %w", err)
	}
	return string(b), nil
}

// Barcode construye el código escalado, sin serializarlo.
func (g *Generator) Barcode(p billing.VerificationPayload) (barcode.Barcode, error) {
	content, err := Content(p)
	if err != nil {
		return nil, err
	}
	code, err := qr.Encode(content, g.level, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("qr: codificar: %w", err)
	}
	scaled, err := barcode.Scale(code, g.size, g.size)
	if err != nil {
		return nil, fmt.Errorf("qr: escalar: %w", err)
	}
	return scaled, nil
}

// Encode devuelve el QR como data URL PNG en base64. El PNG es gris de 8 bits:
// barcode.Scale trabaja en Gray16 y gofpdf no acepta PNG de 16 bits.
func (g *Generator) Encode(p billing.VerificationPayload) (string, error) {
	code, err := g.Barcode(p)
	if err != nil {
		return "", err
	}
	gray := image.NewGray(code.Bounds())
	draw.Draw(gray, gray.Bounds(), code, code.Bounds().Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return "", fmt.Errorf("qr: png: %w", err)
	}
	return invoice.EncodeDataURL("image/png", buf.Bytes()), nil
}
