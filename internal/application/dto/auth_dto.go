package dto

// LoginRequest entrada de POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse salida de login. Si RequiresMFA es true no hay token todavía:
// hay que completar POST /api/auth/mfa/verify.
type LoginResponse struct {
	RequiresMFA bool          `json:"requires_mfa"`
	Hint        string        `json:"hint,omitempty"`
	Token       string        `json:"token,omitempty"`
	User        *UserResponse `json:"user,omitempty"`
}

// CodeRequest código de verificación (segundo factor).
type CodeRequest struct {
	Code string `json:"code" validate:"required"`
}

// EnrollRequest inicio del alta de segundo factor.
type EnrollRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
}

// EnrollResponse teléfono enmascarado al que se envió el código.
type EnrollResponse struct {
	Hint string `json:"hint"`
}

// ChangePasswordRequest cambio de contraseña con reautenticación.
type ChangePasswordRequest struct {
	Current string `json:"current_password" validate:"required"`
	Next    string `json:"new_password" validate:"required,min=8"`
}

// LogoutResponse ruta a la que debe ir el cliente tras cerrar sesión.
type LogoutResponse struct {
	Redirect string `json:"redirect"`
	Warning  string `json:"warning,omitempty"`
}

// SessionResponse estado de la sesión del cliente.
type SessionResponse struct {
	SessionID     string        `json:"session_id"`
	Authenticated bool          `json:"authenticated"`
	MFAPending    bool          `json:"mfa_pending"`
	MFAHint       string        `json:"mfa_hint,omitempty"`
	User          *UserResponse `json:"user,omitempty"`
}
