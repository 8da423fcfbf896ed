package aeat

import (
	"net/url"
	"strings"
	"time"

	"github.com/facturable/verifactu-sif/internal/domain/record"
)

// Rutas del servicio de cotejo de facturas.
const (
	qrProductionHost = "https://www2.agenciatributaria.gob.es"
	qrTestingHost    = "https://prewww2.aeat.es"
	qrOnlinePath     = "/wlpl/TIKE-CONT/ValidarQR"
	qrOfflinePath    = "/wlpl/TIKE-CONT/ValidarQRNoVerifactu"
)

// QRGenerator construye las URLs de cotejo que van codificadas en el QR de
// cada factura. Por defecto apunta al entorno de producción en modo en línea
// (modo VERI*FACTU).
type QRGenerator struct {
	production bool
	onlineMode bool
}

// NewQRGenerator devuelve un generador para producción en modo en línea.
func NewQRGenerator() *QRGenerator {
	return &QRGenerator{production: true, onlineMode: true}
}

// SetProduction selecciona el entorno: true para producción, false para
// pruebas.
func (g *QRGenerator) SetProduction(production bool) *QRGenerator {
	g.production = production
	return g
}

// SetOnlineMode selecciona el modo de remisión: true para modo en línea
// (VERI*FACTU), false para modo fuera de línea.
func (g *QRGenerator) SetOnlineMode(onlineMode bool) *QRGenerator {
	g.onlineMode = onlineMode
	return g
}

// FromRegistrationRecord genera la URL de cotejo de un registro de alta.
func (g *QRGenerator) FromRegistrationRecord(r *record.RegistrationRecord) string {
	return g.FromInvoiceID(r.InvoiceID, r.TotalAmount)
}

// FromInvoiceID genera la URL de cotejo a partir de un identificador y el
// importe total de la factura.
func (g *QRGenerator) FromInvoiceID(id record.InvoiceIdentifier, amount string) string {
	return g.From(id.IssuerID, id.InvoiceNumber, id.IssueDate, amount)
}

// From genera la URL de cotejo a partir de los parámetros sueltos. Los
// parámetros de consulta siguen el orden fijo que exige la normativa: nif,
// numserie, fecha e importe.
func (g *QRGenerator) From(issuerID, invoiceNumber string, issueDate time.Time, amount string) string {
	var b strings.Builder
	if g.production {
		b.WriteString(qrProductionHost)
	} else {
		b.WriteString(qrTestingHost)
	}
	if g.onlineMode {
		b.WriteString(qrOnlinePath)
	} else {
		b.WriteString(qrOfflinePath)
	}
	b.WriteString("?nif=")
	b.WriteString(url.QueryEscape(issuerID))
	b.WriteString("&numserie=")
	b.WriteString(url.QueryEscape(invoiceNumber))
	b.WriteString("&fecha=")
	b.WriteString(url.QueryEscape(issueDate.Format(record.DateLayout)))
	b.WriteString("&importe=")
	b.WriteString(url.QueryEscape(amount))
	return b.String()
}
