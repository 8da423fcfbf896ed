package dto

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Violations []Violation `json:"violations,omitempty"`
}

// Violation una violación de validación con su ruta de campo.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
