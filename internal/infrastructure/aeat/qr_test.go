package aeat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/facturable/verifactu-sif/internal/domain/record"
)

func TestQRGenerator_ParametrosSueltos(t *testing.T) {
	issueDate := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	g := NewQRGenerator()

	assert.Equal(t,
		"https://www2.agenciatributaria.gob.es/wlpl/TIKE-CONT/ValidarQR?nif=A86018322&numserie=FACT001&fecha=01-10-2025&importe=100.23",
		g.From("A86018322", "FACT001", issueDate, "100.23"))

	g.SetOnlineMode(false)
	assert.Equal(t,
		"https://www2.agenciatributaria.gob.es/wlpl/TIKE-CONT/ValidarQRNoVerifactu?nif=A86018322&numserie=FACT002&fecha=01-10-2025&importe=100.23",
		g.From("A86018322", "FACT002", issueDate, "100.23"))

	g.SetProduction(false)
	assert.Equal(t,
		"https://prewww2.aeat.es/wlpl/TIKE-CONT/ValidarQRNoVerifactu?nif=A86018322&numserie=FACT003&fecha=01-10-2025&importe=100.23",
		g.From("A86018322", "FACT003", issueDate, "100.23"))
}

func TestQRGenerator_DesdeIdentificador(t *testing.T) {
	id := record.NewInvoiceIdentifier("A86018322", "FACT001", time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC))
	got := NewQRGenerator().FromInvoiceID(id, "100.23")
	assert.Equal(t,
		"https://www2.agenciatributaria.gob.es/wlpl/TIKE-CONT/ValidarQR?nif=A86018322&numserie=FACT001&fecha=01-10-2025&importe=100.23",
		got)
}

func TestQRGenerator_DesdeRegistroDeAlta(t *testing.T) {
	rec := &record.RegistrationRecord{
		RecordBase: record.RecordBase{
			InvoiceID: record.NewInvoiceIdentifier("A86018322", "FACT001", time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)),
		},
		TotalAmount: "100.23",
	}
	got := NewQRGenerator().FromRegistrationRecord(rec)
	assert.Equal(t,
		"https://www2.agenciatributaria.gob.es/wlpl/TIKE-CONT/ValidarQR?nif=A86018322&numserie=FACT001&fecha=01-10-2025&importe=100.23",
		got)
}

// TestQRGenerator_EscapaParametros verifica que los valores con caracteres
// reservados se codifican sin alterar el orden fijo de la consulta.
func TestQRGenerator_EscapaParametros(t *testing.T) {
	issueDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got := NewQRGenerator().From("89890001K", "12345679/G34", issueDate, "241.40")
	assert.Equal(t,
		"https://www2.agenciatributaria.gob.es/wlpl/TIKE-CONT/ValidarQR?nif=89890001K&numserie=12345679%2FG34&fecha=01-01-2024&importe=241.40",
		got)
}
