package dto

import "time"

// CreateUserRequest alta de un usuario: cuenta en el proveedor de identidad y fila en users.
type CreateUserRequest struct {
	Email       string   `json:"email" validate:"required,email"`
	Password    string   `json:"password" validate:"required,min=8"`
	Name        string   `json:"name" validate:"required,min=1,max=200"`
	Role        string   `json:"role" validate:"required,oneof=admin staff"`
	Permissions []string `json:"permissions,omitempty"`
}

// UpdatePermissionsRequest cambio de rol y permisos de un usuario.
type UpdatePermissionsRequest struct {
	Role        string   `json:"role,omitempty" validate:"omitempty,oneof=admin staff"`
	Permissions []string `json:"permissions"`
	Status      string   `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}

// UserResponse salida de un usuario.
type UserResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
	Status      string    `json:"status"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
