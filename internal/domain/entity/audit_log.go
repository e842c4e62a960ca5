package entity

import "time"

// AuditAction tipo de acción registrada.
type AuditAction string

const (
	AuditActionLogin   AuditAction = "login"
	AuditActionLogout  AuditAction = "logout"
	AuditActionCreate  AuditAction = "create"
	AuditActionUpdate  AuditAction = "update"
	AuditActionApprove AuditAction = "approve"
	AuditActionReject  AuditAction = "reject"
)

// AuditLog entrada de auditoría (tabla logs).
type AuditLog struct {
	ID          string
	UserID      string
	UserEmail   string // denormalizado
	Action      AuditAction
	EntityType  string // "session", "stock", "approval_form", "rd_product", "user"
	EntityID    string
	Description string
	CreatedAt   time.Time
}
