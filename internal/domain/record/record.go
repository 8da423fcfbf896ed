// Package record modela los registros de facturación del sistema VERI*FACTU
// de la AEAT: identificadores, desglose, registros de alta y anulación, el
// encadenamiento por huella SHA-256 y su motor de validación.
package record

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// HashAlgorithm es el valor del elemento TipoHuella correspondiente a SHA-256,
// el único algoritmo admitido.
const HashAlgorithm = "01"

// Record es un registro de facturación encadenable: un alta (RegistroAlta) o
// una anulación (RegistroAnulacion).
type Record interface {
	// Base da acceso a los campos comunes de encadenamiento e identidad.
	Base() *RecordBase
	// CalculateHash calcula la huella SHA-256 del registro a partir de su
	// contenido canónico. Falla si faltan campos obligatorios.
	CalculateHash() (string, error)
	// Validate evalúa todas las reglas del registro y retorna la lista
	// completa de violaciones. Una lista vacía significa registro válido.
	Validate() []Violation
}

// RecordBase contiene los campos compartidos por ambas variantes de registro.
//
// PreviousInvoiceID y PreviousHash forman el eslabón con el registro anterior
// de la cadena: o están ambos presentes o ambos ausentes. En el primer
// registro de la cadena ambos quedan vacíos.
type RecordBase struct {
	// Identificador de la factura (IDFactura).
	InvoiceID InvoiceIdentifier
	// Identificador de la factura del registro anterior, nil en el primer
	// registro de la cadena.
	PreviousInvoiceID *InvoiceIdentifier
	// Huella del registro anterior (64 caracteres hex), vacía en el primer
	// registro de la cadena.
	PreviousHash string
	// Huella de este registro (64 caracteres hex en mayúsculas).
	Hash string
	// Fecha, hora y huso horario de generación del registro.
	HashedAt time.Time
}

// IsFirst indica si este registro abre la cadena (sin registro anterior).
func (b *RecordBase) IsFirst() bool {
	return b.PreviousInvoiceID == nil && b.PreviousHash == ""
}

// validateBase aplica las reglas de campo comunes y la regla de atomicidad
// del eslabón: identificador y huella anteriores van siempre juntos.
func (b *RecordBase) validateBase() []Violation {
	var vs []Violation
	vs = append(vs, prefix("invoiceId", b.InvoiceID.Validate())...)
	if b.PreviousInvoiceID != nil {
		vs = append(vs, prefix("previousInvoiceId", b.PreviousInvoiceID.Validate())...)
	}
	if b.PreviousHash != "" {
		checkHash(&vs, "previousHash", b.PreviousHash)
	}
	checkRequired(&vs, "hash", b.Hash)
	if b.Hash != "" {
		checkHash(&vs, "hash", b.Hash)
	}
	if b.HashedAt.IsZero() {
		vs = append(vs, Violation{Field: "hashedAt", Message: "This value should not be blank"})
	}

	if b.PreviousInvoiceID != nil && b.PreviousHash == "" {
		vs = append(vs, Violation{Field: "previousHash", Message: "Previous hash is required if previous invoice ID is provided"})
	} else if b.PreviousHash != "" && b.PreviousInvoiceID == nil {
		vs = append(vs, Violation{Field: "previousInvoiceId", Message: "Previous invoice ID is required if previous hash is provided"})
	}
	return vs
}

// validateHash recalcula la huella y la compara con la declarada. Si el
// registro aún no puede calcular su huella por campos sin rellenar, las
// reglas de campo ya lo habrán señalado y no se añade violación.
func validateHash(r Record) []Violation {
	expected, err := r.CalculateHash()
	if err != nil {
		return nil
	}
	if r.Base().Hash != expected {
		return []Violation{{Field: "hash", Message: "Invalid hash, expected value " + expected}}
	}
	return nil
}

// hashPayload construye la carga canónica clave=valor&clave=valor y retorna
// su huella SHA-256 en hexadecimal mayúsculas. Los valores NO se escapan:
// aunque el formato recuerda a una query string, la AEAT exige los valores en
// crudo.
func hashPayload(pairs ...[2]string) string {
	var sb strings.Builder
	for i, pair := range pairs {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(pair[0])
		sb.WriteByte('=')
		sb.WriteString(pair[1])
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
