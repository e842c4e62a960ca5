package entity

import "time"

// Role rol de un usuario de la aplicación.
type Role string

// Roles válidos para User.
const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// Valid indica si el rol pertenece al conjunto cerrado.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStaff
}

// Estados de cuenta.
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User representa un usuario de la aplicación (tabla users).
// El ID coincide con el UID del proveedor de identidad.
type User struct {
	ID          string
	Email       string
	Name        string
	Role        Role
	Permissions PermissionSet
	Status      string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasPermission consulta el conjunto de permisos del usuario.
func (u *User) HasPermission(p Permission) bool {
	if u == nil {
		return false
	}
	return u.Permissions.Has(p)
}
