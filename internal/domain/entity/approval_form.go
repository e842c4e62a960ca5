package entity

import "time"

// Estados de un formulario de aprobación.
const (
	ApprovalStatusPending  = "pending"
	ApprovalStatusApproved = "approved"
	ApprovalStatusRejected = "rejected"
)

// ApprovalForm solicitud de paso de desarrollo a producción (tabla approval_forms).
type ApprovalForm struct {
	ID              string
	Title           string
	Description     string
	RDProductID     *string
	Status          string
	CreatedBy       string
	ApprovedBy      *string
	ApprovedAt      *time.Time
	RejectionReason string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
