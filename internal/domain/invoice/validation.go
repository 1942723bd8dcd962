package invoice

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jhoicas/Facturas-api/internal/domain"
	"github.com/jhoicas/Facturas-api/internal/domain/entity"
)

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// ValidateClient exige nombre, email válido y dirección.
func ValidateClient(c entity.Client) error {
	var errs []error
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, errors.New("el nombre del cliente es obligatorio"))
	}
	if strings.TrimSpace(c.Email) == "" {
		errs = append(errs, errors.New("el email del cliente es obligatorio"))
	} else if !emailPattern.MatchString(c.Email) {
		errs = append(errs, fmt.Errorf("email de cliente inválido: %q", c.Email))
	}
	if strings.TrimSpace(c.Address) == "" {
		errs = append(errs, errors.New("la dirección del cliente es obligatoria"))
	}
	return joinValidation(errs)
}

// ValidateRecurring: frecuencia y próxima fecha son obligatorias solo si IsRecurring.
func ValidateRecurring(r entity.Recurring) error {
	if !r.IsRecurring {
		return nil
	}
	var errs []error
	switch r.Frequency {
	case entity.FrequencyWeekly, entity.FrequencyMonthly, entity.FrequencyQuarterly, entity.FrequencyYearly:
	case "":
		errs = append(errs, errors.New("la frecuencia es obligatoria en facturas recurrentes"))
	default:
		errs = append(errs, fmt.Errorf("frecuencia inválida: %q", r.Frequency))
	}
	if r.NextInvoiceDate == nil || r.NextInvoiceDate.IsZero() {
		errs = append(errs, errors.New("la próxima fecha de facturación es obligatoria en facturas recurrentes"))
	}
	return joinValidation(errs)
}

// ValidateStatus solo acepta Pending y Paid.
func ValidateStatus(status string) error {
	switch status {
	case entity.InvoiceStatusPending, entity.InvoiceStatusPaid:
		return nil
	}
	return fmt.Errorf("%w: %q (valores permitidos: %s, %s)", domain.ErrInvalidStatus, status,
		entity.InvoiceStatusPending, entity.InvoiceStatusPaid)
}

// ValidateSignature verifica que la firma sea un data URL de imagen en base64.
// El contenido de la imagen se valida al renderizar.
func ValidateSignature(dataURL string) error {
	if strings.TrimSpace(dataURL) == "" {
		return fmt.Errorf("%w: la firma digital es obligatoria", domain.ErrValidation)
	}
	if _, _, err := DecodeDataURL(dataURL); err != nil {
		return fmt.Errorf("%w: firma digital: %v", domain.ErrValidation, err)
	}
	return nil
}

// DecodeDataURL decodifica "data:image/png;base64,...." y devuelve el mime y los bytes.
func DecodeDataURL(dataURL string) (mime string, data []byte, err error) {
	header, payload, ok := strings.Cut(dataURL, ",")
	if !ok {
		return "", nil, errors.New("data URL sin separador ','")
	}
	if !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return "", nil, fmt.Errorf("cabecera de data URL inválida: %q", header)
	}
	mime = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	if !strings.HasPrefix(mime, "image/") {
		return "", nil, fmt.Errorf("el data URL no es una imagen: %q", mime)
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("base64 inválido: %w", err)
	}
	return mime, data, nil
}

// EncodeDataURL arma un data URL base64.
func EncodeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDate acepta YYYY-MM-DD o RFC3339.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: fecha vacía", domain.ErrValidation)
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: fecha inválida %q (use YYYY-MM-DD)", domain.ErrValidation, s)
}

func joinValidation(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{domain.ErrValidation}, errs...)...)
}
