package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound        = errors.New("recurso no encontrado")
	ErrInvalidInput    = errors.New("entrada inválida")
	ErrDuplicateRecord = errors.New("registro de facturación duplicado")
	ErrEmptyChain      = errors.New("el emisor no tiene cadena de facturación")
	ErrBrokenChain     = errors.New("el registro no encadena con el último eslabón")
	ErrConflict        = errors.New("conflicto con el estado actual")
)
