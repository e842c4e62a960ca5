package entity

import "time"

// SessionSnapshot copia serializable del estado de una sesión de cliente.
// Se escribe completa en cada transición y se lee una vez al iniciar el gestor.
type SessionSnapshot struct {
	SessionID   string    `json:"session_id"`
	UserID      string    `json:"user_id,omitempty"`
	Email       string    `json:"email,omitempty"`
	Name        string    `json:"name,omitempty"`
	Role        Role      `json:"role,omitempty"`
	Permissions []string  `json:"permissions,omitempty"`
	MFAPending  bool      `json:"mfa_pending,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Authenticated indica si la copia corresponde a una sesión iniciada.
func (s *SessionSnapshot) Authenticated() bool {
	return s != nil && s.UserID != ""
}
