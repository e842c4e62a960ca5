package entity

import "time"

// Credential cuenta del proveedor de identidad local (tabla identities). Separada
// de User: una cuenta puede existir sin perfil en la aplicación.
type Credential struct {
	UID          string
	Email        string
	PasswordHash string
	Phone        string // segundo factor; vacío si no está dado de alta
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasSecondFactor indica si la cuenta exige código por teléfono.
func (c *Credential) HasSecondFactor() bool {
	return c != nil && c.Phone != ""
}
