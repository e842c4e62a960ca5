package entity

import "time"

// Estados de un producto de I+D.
const (
	RDStatusPlanning    = "planning"
	RDStatusDevelopment = "development"
	RDStatusTesting     = "testing"
	RDStatusApproved    = "approved"
	RDStatusRejected    = "rejected"
)

// ValidRDStatus indica si el estado pertenece al conjunto permitido.
func ValidRDStatus(s string) bool {
	switch s {
	case RDStatusPlanning, RDStatusDevelopment, RDStatusTesting, RDStatusApproved, RDStatusRejected:
		return true
	}
	return false
}

// RDCategory categoría de productos en desarrollo.
type RDCategory struct {
	ID          string
	Name        string
	Description string
	CreatedBy   string
	CreatedAt   time.Time
}

// RDProduct producto en desarrollo (tabla rd_products).
type RDProduct struct {
	ID          string
	CategoryID  string
	Name        string
	Description string
	Status      string
	CreatedBy   string
	ApprovedBy  *string
	ApprovedAt  *time.Time
	OrderID     *string // pedido de producción generado, si existe
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
