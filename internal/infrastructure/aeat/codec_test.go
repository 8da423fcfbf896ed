package aeat

import (
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturable/verifactu-sif/internal/domain/record"
	"github.com/facturable/verifactu-sif/pkg/verifactu"
)

// ============================================================================
// Vectores canarios del códec XML. El documento de anulación se compara
// elemento a elemento contra la salida conocida del servicio: si cambia el
// orden o el nombre de un solo elemento, la AEAT rechaza el envío.
// ============================================================================

const testCancellationExportHash = "5DCAFD630E24AA03BCE2D3E6F595BAE802555F4604AF830F0340F3338B4935F6"

func TestExportRecord_AnulacionVectorExacto(t *testing.T) {
	issueDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	previousID := record.NewInvoiceIdentifier("A00000000", "12345679/G34", issueDate)
	rec := &record.CancellationRecord{
		RecordBase: record.RecordBase{
			InvoiceID:         record.NewInvoiceIdentifier("A00000000", "12345679/G34", issueDate),
			PreviousInvoiceID: &previousID,
			PreviousHash:      "F7B94CFD8924EDFF273501B01EE5153E4CE8F259766F88CF6ACB8935802A2B97",
			HashedAt:          time.Date(2024, 1, 1, 19, 20, 40, 0, time.FixedZone("CET", 1*60*60)),
		},
		PriorRejection: verifactu.PriorRejectionYes,
	}
	hash, err := rec.CalculateHash()
	require.NoError(t, err)
	assert.Equal(t, testCancellationExportHash, hash)
	rec.Hash = hash
	require.Empty(t, rec.Validate())

	doc := etree.NewDocument()
	container := doc.CreateElement("container")
	el := ExportRecord(container, rec, buildComputerSystem())
	require.NotNil(t, el)

	expected := parseElement(t, `
		<sum1:RegistroAnulacion>
			<sum1:IDVersion>1.0</sum1:IDVersion>
			<sum1:IDFactura>
				<sum1:IDEmisorFacturaAnulada>A00000000</sum1:IDEmisorFacturaAnulada>
				<sum1:NumSerieFacturaAnulada>12345679/G34</sum1:NumSerieFacturaAnulada>
				<sum1:FechaExpedicionFacturaAnulada>01-01-2024</sum1:FechaExpedicionFacturaAnulada>
			</sum1:IDFactura>
			<sum1:RechazoPrevio>S</sum1:RechazoPrevio>
			<sum1:Encadenamiento>
				<sum1:RegistroAnterior>
					<sum1:IDEmisorFactura>A00000000</sum1:IDEmisorFactura>
					<sum1:NumSerieFactura>12345679/G34</sum1:NumSerieFactura>
					<sum1:FechaExpedicionFactura>01-01-2024</sum1:FechaExpedicionFactura>
					<sum1:Huella>F7B94CFD8924EDFF273501B01EE5153E4CE8F259766F88CF6ACB8935802A2B97</sum1:Huella>
				</sum1:RegistroAnterior>
			</sum1:Encadenamiento>
			<sum1:SistemaInformatico>
				<sum1:NombreRazon>Perico de los Palotes, S.A.</sum1:NombreRazon>
				<sum1:NIF>A00000000</sum1:NIF>
				<sum1:NombreSistemaInformatico>Test SIF</sum1:NombreSistemaInformatico>
				<sum1:IdSistemaInformatico>TS</sum1:IdSistemaInformatico>
				<sum1:Version>0.0.1</sum1:Version>
				<sum1:NumeroInstalacion>01234</sum1:NumeroInstalacion>
				<sum1:TipoUsoPosibleSoloVerifactu>S</sum1:TipoUsoPosibleSoloVerifactu>
				<sum1:TipoUsoPosibleMultiOT>N</sum1:TipoUsoPosibleMultiOT>
				<sum1:IndicadorMultiplesOT>N</sum1:IndicadorMultiplesOT>
			</sum1:SistemaInformatico>
			<sum1:FechaHoraHusoGenRegistro>2024-01-01T19:20:40+01:00</sum1:FechaHoraHusoGenRegistro>
			<sum1:TipoHuella>01</sum1:TipoHuella>
			<sum1:Huella>5DCAFD630E24AA03BCE2D3E6F595BAE802555F4604AF830F0340F3338B4935F6</sum1:Huella>
		</sum1:RegistroAnulacion>`)
	assertSameElement(t, expected, el, "RegistroAnulacion")
}

func TestExportRecord_PrimerRegistroMarcado(t *testing.T) {
	rec := buildRegistrationRecord(t)
	rec.PreviousInvoiceID = nil
	rec.PreviousHash = ""
	rehash(t, rec)

	doc := etree.NewDocument()
	el := ExportRecord(doc.CreateElement("container"), rec, buildComputerSystem())
	require.NotNil(t, el)

	chain := findChild(el, "Encadenamiento")
	require.NotNil(t, chain)
	first, ok := childText(chain, "PrimerRegistro")
	assert.True(t, ok)
	assert.Equal(t, "S", first)
	assert.Nil(t, findChild(chain, "RegistroAnterior"))
}

// ── Ida y vuelta ─────────────────────────────────────────────────────────────

// TestImportRecord_IdaYVuelta exporta un registro de alta completo y lo
// reimporta, comprobando que todos los campos sobreviven el viaje.
func TestImportRecord_IdaYVuelta(t *testing.T) {
	rec := buildRegistrationRecord(t)
	rec.IsCorrection = true
	rec.PriorRejection = verifactu.PriorRejectionNotRegistered
	operationDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rec.OperationDate = &operationDate
	// Una F1 completa: las simplificadas no admiten destinatarios
	rec.InvoiceType = verifactu.InvoiceTypeInvoice
	rec.Recipients = []record.Recipient{
		record.FiscalIdentifier{Name: "Antonio García Pérez", NIF: "00000000A"},
		record.ForeignFiscalIdentifier{
			Name:    "Test Company Name",
			Country: "FR",
			Type:    verifactu.ForeignIdTypeVAT,
			Value:   "FR12345678901",
		},
	}
	rehash(t, rec)

	doc := etree.NewDocument()
	el := ExportRecord(doc.CreateElement("container"), rec, buildComputerSystem())
	require.NotNil(t, el)

	imported, err := ImportRecord(el)
	require.NoError(t, err)
	got, ok := imported.(*record.RegistrationRecord)
	require.True(t, ok)

	assert.True(t, got.InvoiceID.Equal(rec.InvoiceID))
	assert.Equal(t, rec.IssuerName, got.IssuerName)
	assert.True(t, got.IsCorrection)
	assert.Equal(t, verifactu.PriorRejectionNotRegistered, got.PriorRejection)
	assert.Equal(t, rec.InvoiceType, got.InvoiceType)
	require.NotNil(t, got.OperationDate)
	assert.True(t, got.OperationDate.Equal(operationDate))
	assert.Equal(t, rec.Description, got.Description)
	assert.Equal(t, rec.Recipients, got.Recipients)
	assert.Equal(t, rec.Breakdown, got.Breakdown)
	assert.Equal(t, rec.TotalTaxAmount, got.TotalTaxAmount)
	assert.Equal(t, rec.TotalAmount, got.TotalAmount)
	require.NotNil(t, got.PreviousInvoiceID)
	assert.True(t, got.PreviousInvoiceID.Equal(*rec.PreviousInvoiceID))
	assert.Equal(t, rec.PreviousHash, got.PreviousHash)
	assert.Equal(t, rec.Hash, got.Hash)
	assert.True(t, got.HashedAt.Equal(rec.HashedAt))

	// El registro reimportado pasa la validación completa, huella incluida
	assert.Empty(t, got.Validate())
}

func TestImportRecord_IdaYVueltaAnulacion(t *testing.T) {
	issueDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	previousID := record.NewInvoiceIdentifier("89890001K", "12345678/G33", issueDate)
	rec := &record.CancellationRecord{
		RecordBase: record.RecordBase{
			InvoiceID:         record.NewInvoiceIdentifier("89890001K", "12345679/G34", issueDate),
			PreviousInvoiceID: &previousID,
			PreviousHash:      "F7B94CFD8924EDFF273501B01EE5153E4CE8F259766F88CF6ACB8935802A2B97",
			HashedAt:          time.Date(2024, 1, 1, 19, 20, 40, 0, time.FixedZone("CET", 1*60*60)),
		},
		WithoutPriorRecord: true,
	}
	rehash(t, rec)

	doc := etree.NewDocument()
	el := ExportRecord(doc.CreateElement("container"), rec, buildComputerSystem())
	require.NotNil(t, el)

	imported, err := ImportRecord(el)
	require.NoError(t, err)
	got, ok := imported.(*record.CancellationRecord)
	require.True(t, ok)

	assert.True(t, got.InvoiceID.Equal(rec.InvoiceID))
	assert.True(t, got.WithoutPriorRecord)
	assert.False(t, got.PriorRejection.Set())
	require.NotNil(t, got.PreviousInvoiceID)
	assert.True(t, got.PreviousInvoiceID.Equal(previousID))
	assert.Equal(t, rec.Hash, got.Hash)
}

// ── Importación estricta ─────────────────────────────────────────────────────

func TestImportRecord_ElementosObligatorios(t *testing.T) {
	rec := buildRegistrationRecord(t)
	doc := etree.NewDocument()
	el := ExportRecord(doc.CreateElement("container"), rec, buildComputerSystem())
	require.NotNil(t, el)

	// Sin huella no hay registro válido
	huella := findChild(el, "Huella")
	require.NotNil(t, huella)
	el.RemoveChild(huella)
	_, err := ImportRecord(el)
	require.Error(t, err)
	assert.IsType(t, &ImportError{}, err)
	assert.Equal(t, "Missing <sum1:Huella /> element", err.Error())
}

func TestImportRecord_ValoresDeCatalogo(t *testing.T) {
	rec := buildRegistrationRecord(t)
	doc := etree.NewDocument()
	el := ExportRecord(doc.CreateElement("container"), rec, buildComputerSystem())
	require.NotNil(t, el)

	findChild(el, "TipoFactura").SetText("F9")
	_, err := ImportRecord(el)
	require.Error(t, err)
	assert.Equal(t, "Invalid value for <sum1:TipoFactura /> element", err.Error())
}

func TestImportRecord_RaizDesconocida(t *testing.T) {
	doc := etree.NewDocument()
	el := doc.CreateElement("sum1:RegistroInexistente")
	_, err := ImportRecord(el)
	require.Error(t, err)
	assert.IsType(t, &ImportError{}, err)
}

// TestImportRecord_PrefijosVariables verifica que la importación resuelve los
// elementos por nombre local: la AEAT usa prefijos distintos (sum1, tik...)
// para el mismo espacio de nombres según el documento.
func TestImportRecord_PrefijosVariables(t *testing.T) {
	rec := buildRegistrationRecord(t)
	doc := etree.NewDocument()
	el := ExportRecord(doc.CreateElement("container"), rec, buildComputerSystem())
	require.NotNil(t, el)

	serialized, err := doc.WriteToString()
	require.NoError(t, err)
	reprefixed := strings.ReplaceAll(serialized, "sum1:", "tik:")

	reparsed := etree.NewDocument()
	require.NoError(t, reparsed.ReadFromString(reprefixed))
	imported, err := ImportRecord(reparsed.Root().ChildElements()[0])
	require.NoError(t, err)
	assert.Equal(t, rec.Hash, imported.Base().Hash)
}

// ── Desglose ─────────────────────────────────────────────────────────────────

// TestExportBreakdown_OperacionExenta comprueba la bifurcación del esquema:
// las calificaciones E1..E6 se emiten como OperacionExenta y el resto como
// CalificacionOperacion, y la importación acepta ambas.
func TestExportBreakdown_OperacionExenta(t *testing.T) {
	rec := buildRegistrationRecord(t)
	rec.Breakdown = []record.BreakdownEntry{{
		TaxType:       verifactu.TaxTypeIVA,
		RegimeType:    verifactu.RegimeC01,
		OperationType: verifactu.OperationExemptArt20,
		BaseAmount:    "11.22",
	}}
	rec.TotalTaxAmount = "0.00"
	rec.TotalAmount = "11.22"
	rehash(t, rec)

	doc := etree.NewDocument()
	el := ExportRecord(doc.CreateElement("container"), rec, buildComputerSystem())
	require.NotNil(t, el)

	detalle := findPath(el, "Desglose", "DetalleDesglose")
	require.NotNil(t, detalle)
	exenta, ok := childText(detalle, "OperacionExenta")
	assert.True(t, ok)
	assert.Equal(t, "E1", exenta)
	assert.Nil(t, findChild(detalle, "CalificacionOperacion"))

	imported, err := ImportRecord(el)
	require.NoError(t, err)
	got := imported.(*record.RegistrationRecord)
	require.Len(t, got.Breakdown, 1)
	assert.Equal(t, verifactu.OperationExemptArt20, got.Breakdown[0].OperationType)
}

// ── Auxiliares ───────────────────────────────────────────────────────────────

func buildComputerSystem() record.ComputerSystem {
	return record.ComputerSystem{
		VendorName:            "Perico de los Palotes, S.A.",
		VendorNIF:             "A00000000",
		Name:                  "Test SIF",
		ID:                    "TS",
		Version:               "0.0.1",
		InstallationNumber:    "01234",
		OnlySupportsVerifactu: true,
	}
}

// buildRegistrationRecord arma un registro de alta encadenado y válido.
func buildRegistrationRecord(t *testing.T) *record.RegistrationRecord {
	t.Helper()
	issueDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	previousID := record.NewInvoiceIdentifier("89890001K", "12345678/G33", issueDate)
	rec := &record.RegistrationRecord{
		RecordBase: record.RecordBase{
			InvoiceID:         record.NewInvoiceIdentifier("89890001K", "12345679/G34", issueDate),
			PreviousInvoiceID: &previousID,
			PreviousHash:      "F7B94CFD8924EDFF273501B01EE5153E4CE8F259766F88CF6ACB8935802A2B97",
			HashedAt:          time.Date(2024, 1, 1, 19, 20, 40, 0, time.FixedZone("CET", 1*60*60)),
		},
		IssuerName:  "Perico de los Palotes, S.A.",
		InvoiceType: verifactu.InvoiceTypeSimplified,
		Description: "Venta de productos varios",
		Breakdown: []record.BreakdownEntry{{
			TaxType:       verifactu.TaxTypeIVA,
			RegimeType:    verifactu.RegimeC01,
			OperationType: verifactu.OperationSubject,
			BaseAmount:    "11.22",
			TaxRate:       ptr("21.00"),
			TaxAmount:     ptr("2.36"),
		}},
		TotalTaxAmount: "2.36",
		TotalAmount:    "13.58",
	}
	rehash(t, rec)
	return rec
}

func rehash(t *testing.T, rec record.Record) {
	t.Helper()
	hash, err := rec.CalculateHash()
	require.NoError(t, err)
	rec.Base().Hash = hash
}

func ptr(s string) *string { return &s }

func parseElement(t *testing.T, raw string) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(raw))
	return doc.Root()
}

// assertSameElement compara dos árboles elemento a elemento: mismo nombre
// completo, mismo texto y mismos hijos en el mismo orden.
func assertSameElement(t *testing.T, want, got *etree.Element, path string) {
	t.Helper()
	require.Equal(t, want.FullTag(), got.FullTag(), "nombre en %s", path)

	wantChildren := want.ChildElements()
	gotChildren := got.ChildElements()
	if len(wantChildren) == 0 {
		assert.Equal(t, strings.TrimSpace(want.Text()), strings.TrimSpace(got.Text()),
			"texto en %s", path)
		return
	}
	require.Equal(t, len(wantChildren), len(gotChildren), "número de hijos en %s", path)
	for i := range wantChildren {
		assertSameElement(t, wantChildren[i], gotChildren[i], path+"/"+wantChildren[i].FullTag())
	}
}
