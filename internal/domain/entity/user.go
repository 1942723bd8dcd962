package entity

import "time"

// User representa un usuario emisor de facturas.
// Los datos de empresa se imprimen en el bloque "De" del PDF.
type User struct {
	ID             string
	Email          string
	PasswordHash   string // bcrypt hash, nunca plano en dominio después de persistir
	FullName       string
	CompanyName    string
	CompanyAddress string
	CompanyPhone   string
	Status         string // active, inactive, suspended
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Issuer datos del emisor que aparecen en el documento.
type Issuer struct {
	FullName       string
	CompanyName    string
	CompanyAddress string
	CompanyPhone   string
}

// Issuer devuelve el bloque de emisor del usuario.
func (u *User) Issuer() Issuer {
	return Issuer{
		FullName:       u.FullName,
		CompanyName:    u.CompanyName,
		CompanyAddress: u.CompanyAddress,
		CompanyPhone:   u.CompanyPhone,
	}
}
