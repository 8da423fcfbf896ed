package record_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturable/verifactu-sif/internal/domain/record"
)

const testCancellationHash = "177547C0D57AC74748561D054A9CEC14B4C4EA23D1BEFD6F2E69E3A388F90C68"

var testZoneCET = time.FixedZone("CET", 1*60*60)

// TestCancellationRecord_HuellaVectorExacto valida la huella de un registro
// de anulación contra el vector de referencia: la carga canónica usa las
// claves con sufijo "Anulada" y omite tipo de factura y totales.
func TestCancellationRecord_HuellaVectorExacto(t *testing.T) {
	rec := buildCancellationRecord()

	hash, err := rec.CalculateHash()
	require.NoError(t, err)
	assert.Equal(t, testCancellationHash, hash,
		"La huella de anulación debe coincidir con el vector SHA-256 de referencia")

	rec.Hash = hash
	assert.Empty(t, rec.Validate())
}

// TestCancellationRecord_ExigeEslabonAnterior verifica la atomicidad del
// eslabón en anulaciones: sin identificador ni huella anteriores hay dos
// violaciones distintas; con solo uno de los dos queda exactamente la del
// campo que falta.
func TestCancellationRecord_ExigeEslabonAnterior(t *testing.T) {
	rec := buildCancellationRecord()
	rec.PreviousInvoiceID = nil
	rec.PreviousHash = ""
	rehash(t, rec)

	got := messages(rec.Validate())
	assert.Contains(t, got, "Previous invoice ID is required for all cancellation records")
	assert.Contains(t, got, "Previous hash is required for all cancellation records")

	// Solo falta la huella anterior
	previous := record.NewInvoiceIdentifier("89890001K", "12345679/G34", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	rec.PreviousInvoiceID = &previous
	rehash(t, rec)
	got = messages(rec.Validate())
	assert.NotContains(t, got, "Previous invoice ID is required")
	assert.Contains(t, got, "Previous hash is required")

	// Solo falta el identificador anterior
	rec.PreviousInvoiceID = nil
	rec.PreviousHash = "F7B94CFD8924EDFF273501B01EE5153E4CE8F259766F88CF6ACB8935802A2B97"
	rehash(t, rec)
	got = messages(rec.Validate())
	assert.Contains(t, got, "Previous invoice ID is required")
	assert.NotContains(t, got, "Previous hash is required")
}

// TestCancellationRecord_HuellaSensibleALaHuellaAnterior verifica que el
// encadenamiento participa en la huella.
func TestCancellationRecord_HuellaSensibleALaHuellaAnterior(t *testing.T) {
	r1 := buildCancellationRecord()
	r2 := buildCancellationRecord()
	r2.PreviousHash = "0000000000000000000000000000000000000000000000000000000000000000"

	hash1, _ := r1.CalculateHash()
	hash2, _ := r2.CalculateHash()

	assert.NotEqual(t, hash1, hash2,
		"Huellas anteriores distintas deben producir huellas distintas")
}

func TestCancellationRecord_HuellaErrorSiCamposSinRellenar(t *testing.T) {
	rec := &record.CancellationRecord{}
	_, err := rec.CalculateHash()
	assert.Error(t, err)
}

// buildCancellationRecord construye la anulación del vector de referencia.
func buildCancellationRecord() *record.CancellationRecord {
	rec := &record.CancellationRecord{}
	rec.InvoiceID = record.NewInvoiceIdentifier("89890001K", "12345679/G34", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	previous := record.NewInvoiceIdentifier("89890001K", "12345679/G34", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	rec.PreviousInvoiceID = &previous
	rec.PreviousHash = "F7B94CFD8924EDFF273501B01EE5153E4CE8F259766F88CF6ACB8935802A2B97"
	rec.HashedAt = time.Date(2024, 1, 1, 19, 20, 40, 0, testZoneCET)
	return rec
}
