package invoice

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/jhoicas/Facturas-api/internal/domain"
)

// NumberPrefix prefijo de la numeración de facturas.
const NumberPrefix = "INV-"

// FirstNumber primer número asignado cuando no existe ninguna factura.
const FirstNumber = NumberPrefix + "0001"

var numberPattern = regexp.MustCompile(`^INV-(\d{4,})$`)

// NextNumber devuelve el consecutivo siguiente a last.
// "" → INV-0001, INV-0042 → INV-0043, INV-9999 → INV-10000 (el relleno crece sin límite).
// Un last con formato distinto a INV-<dígitos> indica estado corrupto y retorna ErrAllocation.
func NextNumber(last string) (string, error) {
	if last == "" {
		return FirstNumber, nil
	}
	seq, err := ParseNumber(last)
	if err != nil {
		return "", err
	}
	return FormatNumber(seq.Add(seq, big.NewInt(1))), nil
}

// ParseNumber extrae el consecutivo numérico de un número de factura.
func ParseNumber(number string) (*big.Int, error) {
	m := numberPattern.FindStringSubmatch(number)
	if m == nil {
		return nil, fmt.Errorf("%w: número %q no tiene el formato INV-<dígitos>", domain.ErrAllocation, number)
	}
	n, ok := new(big.Int).SetString(m[1], 10)
	if !ok {
		return nil, fmt.Errorf("%w: número %q no es numérico", domain.ErrAllocation, number)
	}
	return n, nil
}

// FormatNumber formatea el consecutivo con al menos 4 dígitos.
func FormatNumber(seq *big.Int) string {
	digits := seq.String()
	if len(digits) < 4 {
		digits = strings.Repeat("0", 4-len(digits)) + digits
	}
	return NumberPrefix + digits
}

// CompareNumbers ordena dos números válidos por su valor numérico (-1, 0, 1).
func CompareNumbers(a, b string) (int, error) {
	na, err := ParseNumber(a)
	if err != nil {
		return 0, err
	}
	nb, err := ParseNumber(b)
	if err != nil {
		return 0, err
	}
	return na.Cmp(nb), nil
}
