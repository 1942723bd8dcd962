package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrValidation         = errors.New("entrada inválida")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")

	// Ciclo de vida de facturas.
	ErrImmutableState = errors.New("la factura está pagada y no admite cambios")
	ErrInvalidStatus  = errors.New("estado de factura inválido")
	ErrAllocation     = errors.New("no se pudo asignar el número de factura")
	ErrRender         = errors.New("no se pudo generar el documento")
	ErrDelivery       = errors.New("no se pudo enviar la factura por email")
)
