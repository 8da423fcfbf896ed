package record

import (
	"fmt"
	"strings"
)

// Violation es un incumplimiento concreto de una regla de validación.
type Violation struct {
	Field   string // ruta del campo (ej: "breakdown[0].taxAmount")
	Message string
}

func (v Violation) String() string {
	return v.Field + ": " + v.Message
}

// InvalidRecordError agrupa todas las violaciones de un registro en un solo
// error, para que el emisor pueda corregirlas todas antes de reenviar.
type InvalidRecordError struct {
	Violations []Violation
}

func (e *InvalidRecordError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return "registro inválido: " + strings.Join(msgs, "; ")
}

// NewInvalidRecordError construye el error agregado. Retorna nil si no hay
// violaciones.
func NewInvalidRecordError(violations []Violation) error {
	if len(violations) == 0 {
		return nil
	}
	return &InvalidRecordError{Violations: violations}
}

// fieldError señala un uso incorrecto por parte del llamador: operar sobre un
// registro con campos obligatorios sin rellenar (ej: calcular la huella antes
// de poblar el identificador de factura). No es una violación de negocio.
func fieldError(field string) error {
	return fmt.Errorf("record: campo obligatorio %q sin valor", field)
}
