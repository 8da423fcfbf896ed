package record_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/facturable/verifactu-sif/internal/domain/record"
)

// TestInvoiceIdentifier_Equal valida la ley de igualdad: las fechas se
// comparan a precisión de día, descartando hora y huso horario.
func TestInvoiceIdentifier_Equal(t *testing.T) {
	a := record.InvoiceIdentifier{
		IssuerID:      "A00000000",
		InvoiceNumber: "PRUEBA-0001",
		IssueDate:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	b := record.InvoiceIdentifier{
		IssuerID:      "A00000000",
		InvoiceNumber: "PRUEBA-0001",
		IssueDate:     time.Date(2025, 6, 1, 23, 59, 59, 0, time.UTC),
	}
	assert.True(t, a.Equal(b), "la hora del día no participa en la igualdad")
	assert.True(t, b.Equal(a))

	// Distinto día: desiguales
	b.IssueDate = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	assert.False(t, a.Equal(b))

	// Distinto emisor o número: desiguales
	b = a
	b.IssuerID = "B00000000"
	assert.False(t, a.Equal(b))
	b = a
	b.InvoiceNumber = "PRUEBA-0002"
	assert.False(t, a.Equal(b))
}

// TestInvoiceIdentifier_EqualConHuso comprueba que dos fechas del mismo día
// calendario en husos distintos se consideran iguales: la comparación usa el
// día local de cada instante, no el instante absoluto.
func TestInvoiceIdentifier_EqualConHuso(t *testing.T) {
	madrid := time.FixedZone("CEST", 2*60*60)
	a := record.NewInvoiceIdentifier("A00000000", "PRUEBA-0001", time.Date(2025, 6, 1, 1, 0, 0, 0, madrid))
	b := record.NewInvoiceIdentifier("A00000000", "PRUEBA-0001", time.Date(2025, 6, 1, 22, 0, 0, 0, time.UTC))
	assert.True(t, a.Equal(b), "mismo día calendario local en husos distintos")
}

func TestInvoiceIdentifier_Validate(t *testing.T) {
	id := record.NewInvoiceIdentifier("A00000000", "PRUEBA-0001", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	assert.Empty(t, id.Validate())

	id.IssuerID = "A000"
	got := messages(id.Validate())
	assert.Contains(t, got, "issuerId: This value should have exactly 9 characters")

	id = record.InvoiceIdentifier{}
	got = messages(id.Validate())
	assert.Contains(t, got, "invoiceNumber: This value should not be blank")
	assert.Contains(t, got, "issueDate: This value should not be blank")
}
