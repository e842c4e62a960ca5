package entity

import (
	"fmt"
	"sort"
)

// Permission permiso de la aplicación. Conjunto cerrado: no se aceptan cadenas libres.
type Permission string

const (
	PermissionManageUsers     Permission = "manage_users"
	PermissionManageProducts  Permission = "manage_products"
	PermissionManageOrders    Permission = "manage_orders"
	PermissionManageInventory Permission = "manage_inventory"
)

// AllPermissions lista los permisos en orden estable.
var AllPermissions = []Permission{
	PermissionManageUsers,
	PermissionManageProducts,
	PermissionManageOrders,
	PermissionManageInventory,
}

// ParsePermission valida una cadena contra el conjunto cerrado.
func ParsePermission(s string) (Permission, error) {
	for _, p := range AllPermissions {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("permiso desconocido %q", s)
}

// DefaultPermissions permisos iniciales por rol. Staff parte sin permisos:
// solo un administrador puede asignarlos.
func DefaultPermissions(role Role) PermissionSet {
	switch role {
	case RoleAdmin:
		return NewPermissionSet(AllPermissions...)
	default:
		return NewPermissionSet()
	}
}

// PermissionSet conjunto de permisos.
type PermissionSet map[Permission]struct{}

// NewPermissionSet construye un conjunto con los permisos dados.
func NewPermissionSet(perms ...Permission) PermissionSet {
	s := make(PermissionSet, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// ParsePermissionSet valida y convierte una lista de cadenas.
func ParsePermissionSet(raw []string) (PermissionSet, error) {
	s := make(PermissionSet, len(raw))
	for _, r := range raw {
		p, err := ParsePermission(r)
		if err != nil {
			return nil, err
		}
		s[p] = struct{}{}
	}
	return s, nil
}

// Has indica si el permiso está en el conjunto.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Strings devuelve los permisos ordenados, para persistir o serializar.
func (s PermissionSet) Strings() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, string(p))
	}
	sort.Strings(out)
	return out
}
