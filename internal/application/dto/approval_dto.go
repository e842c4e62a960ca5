package dto

import "time"

// CreateApprovalFormRequest body para POST /api/approvals.
type CreateApprovalFormRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description"`
	RDProductID *string `json:"rd_product_id,omitempty"`
}

// RejectRequest motivo del rechazo.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// ApprovalFormResponse salida de un formulario de aprobación.
type ApprovalFormResponse struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	RDProductID     *string    `json:"rd_product_id,omitempty"`
	Status          string     `json:"status"`
	CreatedBy       string     `json:"created_by"`
	ApprovedBy      *string    `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
