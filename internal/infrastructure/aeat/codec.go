// Package aeat implementa la capa de integración con la AEAT para
// VERI*FACTU: el códec XML de registros de facturación, el cliente SOAP de
// remisión, el análisis de respuestas y la generación de URLs de QR.
package aeat

import (
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/facturable/verifactu-sif/internal/domain/record"
	"github.com/facturable/verifactu-sif/pkg/verifactu"
)

// Espacios de nombres de los esquemas del servicio web de la AEAT.
const (
	NamespaceSoapEnv  = "http://schemas.xmlsoap.org/soap/envelope/"
	NamespaceSum      = "https://www2.agenciatributaria.gob.es/static_files/common/internet/dep/aplicaciones/es/aeat/tike/cont/ws/SuministroLR.xsd"
	NamespaceSum1     = "https://www2.agenciatributaria.gob.es/static_files/common/internet/dep/aplicaciones/es/aeat/tike/cont/ws/SuministroInformacion.xsd"
	NamespaceResponse = "https://www2.agenciatributaria.gob.es/static_files/common/internet/dep/aplicaciones/es/aeat/tike/cont/ws/RespuestaSuministro.xsd"
)

// Nombres de elemento raíz de cada variante de registro.
const (
	registrationElement = "RegistroAlta"
	cancellationElement = "RegistroAnulacion"
)

// ── Exportación ───────────────────────────────────────────────────────────────

// ExportRecord serializa un registro de facturación como hijo de parent, con
// el orden exacto de elementos que exige el esquema SuministroInformacion:
// versión, propiedades de la variante, encadenamiento, sistema informático,
// marca temporal, algoritmo de huella y huella.
func ExportRecord(parent *etree.Element, rec record.Record, system record.ComputerSystem) *etree.Element {
	var el *etree.Element
	switch r := rec.(type) {
	case *record.RegistrationRecord:
		el = parent.CreateElement("sum1:" + registrationElement)
		addText(el, "sum1:IDVersion", "1.0")
		exportRegistrationProperties(el, r)
	case *record.CancellationRecord:
		el = parent.CreateElement("sum1:" + cancellationElement)
		addText(el, "sum1:IDVersion", "1.0")
		exportCancellationProperties(el, r)
	default:
		return nil
	}

	base := rec.Base()
	chain := el.CreateElement("sum1:Encadenamiento")
	if base.PreviousInvoiceID == nil {
		addText(chain, "sum1:PrimerRegistro", "S")
	} else {
		previous := chain.CreateElement("sum1:RegistroAnterior")
		exportInvoiceID(previous, *base.PreviousInvoiceID, false)
		addText(previous, "sum1:Huella", base.PreviousHash)
	}

	ExportComputerSystem(el, system)

	addText(el, "sum1:FechaHoraHusoGenRegistro", base.HashedAt.Format(record.TimestampLayout))
	addText(el, "sum1:TipoHuella", record.HashAlgorithm)
	addText(el, "sum1:Huella", base.Hash)
	return el
}

func exportRegistrationProperties(el *etree.Element, r *record.RegistrationRecord) {
	idFactura := el.CreateElement("sum1:IDFactura")
	exportInvoiceID(idFactura, r.InvoiceID, false)

	addText(el, "sum1:NombreRazonEmisor", r.IssuerName)

	addText(el, "sum1:Subsanacion", boolIndicator(r.IsCorrection))
	if r.PriorRejection.Set() {
		addText(el, "sum1:RechazoPrevio", string(r.PriorRejection))
	}

	addText(el, "sum1:TipoFactura", string(r.InvoiceType))

	if r.CorrectiveType != "" {
		addText(el, "sum1:TipoRectificativa", string(r.CorrectiveType))
	}
	if len(r.CorrectedInvoices) > 0 {
		rectificadas := el.CreateElement("sum1:FacturasRectificadas")
		for _, corrected := range r.CorrectedInvoices {
			exportInvoiceID(rectificadas.CreateElement("sum1:IDFacturaRectificada"), corrected, false)
		}
	}
	if len(r.ReplacedInvoices) > 0 {
		sustituidas := el.CreateElement("sum1:FacturasSustituidas")
		for _, replaced := range r.ReplacedInvoices {
			exportInvoiceID(sustituidas.CreateElement("sum1:IDFacturaSustituida"), replaced, false)
		}
	}
	if r.CorrectedBaseAmount != nil && r.CorrectedTaxAmount != nil {
		rectificacion := el.CreateElement("sum1:ImporteRectificacion")
		addText(rectificacion, "sum1:BaseRectificada", *r.CorrectedBaseAmount)
		addText(rectificacion, "sum1:CuotaRectificada", *r.CorrectedTaxAmount)
	}

	if r.OperationDate != nil {
		addText(el, "sum1:FechaOperacion", r.OperationDate.Format(record.DateLayout))
	}

	addText(el, "sum1:DescripcionOperacion", r.Description)

	if len(r.Recipients) > 0 {
		destinatarios := el.CreateElement("sum1:Destinatarios")
		for _, recipient := range r.Recipients {
			destinatario := destinatarios.CreateElement("sum1:IDDestinatario")
			addText(destinatario, "sum1:NombreRazon", recipient.RecipientName())
			switch id := recipient.(type) {
			case record.FiscalIdentifier:
				addText(destinatario, "sum1:NIF", id.NIF)
			case record.ForeignFiscalIdentifier:
				idOtro := destinatario.CreateElement("sum1:IDOtro")
				if id.Country != "" {
					addText(idOtro, "sum1:CodigoPais", id.Country)
				}
				addText(idOtro, "sum1:IDType", string(id.Type))
				addText(idOtro, "sum1:ID", id.Value)
			}
		}
	}

	desglose := el.CreateElement("sum1:Desglose")
	for _, entry := range r.Breakdown {
		exportBreakdownEntry(desglose, entry)
	}

	addText(el, "sum1:CuotaTotal", r.TotalTaxAmount)
	addText(el, "sum1:ImporteTotal", r.TotalAmount)
}

func exportCancellationProperties(el *etree.Element, r *record.CancellationRecord) {
	idFactura := el.CreateElement("sum1:IDFactura")
	exportInvoiceID(idFactura, r.InvoiceID, true)

	if r.WithoutPriorRecord {
		addText(el, "sum1:SinRegistroPrevio", "S")
	}
	if r.PriorRejection.Set() {
		addText(el, "sum1:RechazoPrevio", string(r.PriorRejection))
	}
}

// exportInvoiceID escribe las propiedades del identificador directamente en
// el elemento recibido, sin nodo intermedio: el identificador aparece en
// varios contextos distintos (IDFactura, RegistroAnterior, rectificadas...).
// En registros de anulación los elementos llevan el sufijo "Anulada".
func exportInvoiceID(el *etree.Element, id record.InvoiceIdentifier, cancellation bool) {
	suffix := ""
	if cancellation {
		suffix = "Anulada"
	}
	addText(el, "sum1:IDEmisorFactura"+suffix, id.IssuerID)
	addText(el, "sum1:NumSerieFactura"+suffix, id.InvoiceNumber)
	addText(el, "sum1:FechaExpedicionFactura"+suffix, id.IssueDate.Format(record.DateLayout))
}

// exportBreakdownEntry serializa una línea de desglose. Las calificaciones
// E1..E6 van en OperacionExenta; el resto en CalificacionOperacion.
func exportBreakdownEntry(parent *etree.Element, entry record.BreakdownEntry) {
	el := parent.CreateElement("sum1:DetalleDesglose")
	addText(el, "sum1:Impuesto", string(entry.TaxType))
	addText(el, "sum1:ClaveRegimen", string(entry.RegimeType))
	if entry.OperationType.IsExempt() {
		addText(el, "sum1:OperacionExenta", string(entry.OperationType))
	} else {
		addText(el, "sum1:CalificacionOperacion", string(entry.OperationType))
	}
	if entry.ExemptReasonCode != nil {
		addText(el, "sum1:CausaExencion", *entry.ExemptReasonCode)
	}
	if entry.ExemptReason != nil {
		addText(el, "sum1:DescripcionExencion", *entry.ExemptReason)
	}
	if entry.TaxRate != nil {
		addText(el, "sum1:TipoImpositivo", *entry.TaxRate)
	}
	addText(el, "sum1:BaseImponibleOimporteNoSujeto", entry.BaseAmount)
	if entry.TaxAmount != nil {
		addText(el, "sum1:CuotaRepercutida", *entry.TaxAmount)
	}
	if entry.SurchargeRate != nil {
		addText(el, "sum1:TipoRecargoEquivalencia", *entry.SurchargeRate)
	}
	if entry.SurchargeAmount != nil {
		addText(el, "sum1:CuotaRecargoEquivalencia", *entry.SurchargeAmount)
	}
}

// ExportComputerSystem serializa el bloque SistemaInformatico.
func ExportComputerSystem(parent *etree.Element, s record.ComputerSystem) {
	el := parent.CreateElement("sum1:SistemaInformatico")
	addText(el, "sum1:NombreRazon", s.VendorName)
	addText(el, "sum1:NIF", s.VendorNIF)
	addText(el, "sum1:NombreSistemaInformatico", s.Name)
	addText(el, "sum1:IdSistemaInformatico", s.ID)
	addText(el, "sum1:Version", s.Version)
	addText(el, "sum1:NumeroInstalacion", s.InstallationNumber)
	addText(el, "sum1:TipoUsoPosibleSoloVerifactu", boolIndicator(s.OnlySupportsVerifactu))
	addText(el, "sum1:TipoUsoPosibleMultiOT", boolIndicator(s.SupportsMultipleTaxpayers))
	addText(el, "sum1:IndicadorMultiplesOT", boolIndicator(s.HasMultipleTaxpayers))
}

// ── Importación ───────────────────────────────────────────────────────────────

// ImportRecord reconstruye un registro a partir de su elemento XML,
// escogiendo la variante según el nombre local del elemento raíz. El análisis
// es estricto: cualquier elemento obligatorio ausente o valor enumerado
// desconocido produce un ImportError que nombra al elemento.
func ImportRecord(el *etree.Element) (record.Record, error) {
	switch el.Tag {
	case registrationElement:
		return importRegistration(el)
	case cancellationElement:
		return importCancellation(el)
	default:
		return nil, &ImportError{msg: "Unexpected node type"}
	}
}

func importRegistration(el *etree.Element) (*record.RegistrationRecord, error) {
	r := &record.RegistrationRecord{}
	if err := importBase(el, &r.RecordBase); err != nil {
		return nil, err
	}

	idFactura := findChild(el, "IDFactura")
	if idFactura == nil {
		return nil, missingElement("sum1:IDFactura")
	}
	invoiceID, err := importInvoiceID(idFactura)
	if err != nil {
		return nil, err
	}
	r.InvoiceID = invoiceID

	issuerName, ok := childText(el, "NombreRazonEmisor")
	if !ok {
		return nil, missingElement("sum1:NombreRazonEmisor")
	}
	r.IssuerName = issuerName

	// Indicadores
	r.IsCorrection = textOrDefault(el, "Subsanacion", "N") == "S"
	priorRejection := verifactu.PriorRejection(textOrDefault(el, "RechazoPrevio", "N"))
	if !priorRejection.Valid() {
		return nil, invalidValue("sum1:RechazoPrevio")
	}
	r.PriorRejection = priorRejection

	rawInvoiceType, ok := childText(el, "TipoFactura")
	if !ok {
		return nil, missingElement("sum1:TipoFactura")
	}
	invoiceType := verifactu.InvoiceType(rawInvoiceType)
	if !invoiceType.Valid() {
		return nil, invalidValue("sum1:TipoFactura")
	}
	r.InvoiceType = invoiceType

	// Metadatos de rectificativa
	if rawCorrectiveType, ok := childText(el, "TipoRectificativa"); ok {
		correctiveType := verifactu.CorrectiveType(rawCorrectiveType)
		if !correctiveType.Valid() {
			return nil, invalidValue("sum1:TipoRectificativa")
		}
		r.CorrectiveType = correctiveType
	}
	for _, corrected := range findChildren(findChild(el, "FacturasRectificadas"), "IDFacturaRectificada") {
		id, err := importInvoiceID(corrected)
		if err != nil {
			return nil, err
		}
		r.CorrectedInvoices = append(r.CorrectedInvoices, id)
	}
	for _, replaced := range findChildren(findChild(el, "FacturasSustituidas"), "IDFacturaSustituida") {
		id, err := importInvoiceID(replaced)
		if err != nil {
			return nil, err
		}
		r.ReplacedInvoices = append(r.ReplacedInvoices, id)
	}
	if rectificacion := findChild(el, "ImporteRectificacion"); rectificacion != nil {
		if base, ok := childText(rectificacion, "BaseRectificada"); ok {
			r.CorrectedBaseAmount = &base
		}
		if tax, ok := childText(rectificacion, "CuotaRectificada"); ok {
			r.CorrectedTaxAmount = &tax
		}
	}

	// Fecha de operación
	if rawOperationDate, ok := childText(el, "FechaOperacion"); ok {
		operationDate, err := time.Parse(record.DateLayout, rawOperationDate)
		if err != nil {
			return nil, invalidValue("sum1:FechaOperacion")
		}
		r.OperationDate = &operationDate
	}

	description, ok := childText(el, "DescripcionOperacion")
	if !ok {
		return nil, missingElement("sum1:DescripcionOperacion")
	}
	r.Description = description

	// Destinatarios
	for _, destinatario := range findChildren(findChild(el, "Destinatarios"), "IDDestinatario") {
		recipient, err := importRecipient(destinatario)
		if err != nil {
			return nil, err
		}
		r.Recipients = append(r.Recipients, recipient)
	}

	// Desglose
	for _, detalle := range findChildren(findChild(el, "Desglose"), "DetalleDesglose") {
		entry, err := importBreakdownEntry(detalle)
		if err != nil {
			return nil, err
		}
		r.Breakdown = append(r.Breakdown, entry)
	}

	totalTaxAmount, ok := childText(el, "CuotaTotal")
	if !ok {
		return nil, missingElement("sum1:CuotaTotal")
	}
	r.TotalTaxAmount = totalTaxAmount

	totalAmount, ok := childText(el, "ImporteTotal")
	if !ok {
		return nil, missingElement("sum1:ImporteTotal")
	}
	r.TotalAmount = totalAmount

	return r, nil
}

func importCancellation(el *etree.Element) (*record.CancellationRecord, error) {
	r := &record.CancellationRecord{}
	if err := importBase(el, &r.RecordBase); err != nil {
		return nil, err
	}

	idFactura := findChild(el, "IDFactura")
	if idFactura == nil {
		return nil, missingElement("sum1:IDFactura")
	}
	invoiceID, err := importInvoiceID(idFactura)
	if err != nil {
		return nil, err
	}
	r.InvoiceID = invoiceID

	r.WithoutPriorRecord = textOrDefault(el, "SinRegistroPrevio", "N") == "S"
	priorRejection := verifactu.PriorRejection(textOrDefault(el, "RechazoPrevio", "N"))
	if !priorRejection.Valid() {
		return nil, invalidValue("sum1:RechazoPrevio")
	}
	r.PriorRejection = priorRejection

	return r, nil
}

// importBase lee el encadenamiento, la marca temporal y la huella, comunes a
// ambas variantes.
func importBase(el *etree.Element, base *record.RecordBase) error {
	if previous := findPath(el, "Encadenamiento", "RegistroAnterior"); previous != nil {
		id, err := importInvoiceID(previous)
		if err != nil {
			return err
		}
		base.PreviousInvoiceID = &id
		previousHash, ok := childText(previous, "Huella")
		if !ok {
			return missingElementFrom("sum1:Huella", "sum1:RegistroAnterior")
		}
		base.PreviousHash = previousHash
	}

	rawHashedAt, ok := childText(el, "FechaHoraHusoGenRegistro")
	if !ok {
		return missingElement("sum1:FechaHoraHusoGenRegistro")
	}
	hashedAt, err := time.Parse(record.TimestampLayout, rawHashedAt)
	if err != nil {
		return invalidValue("sum1:FechaHoraHusoGenRegistro")
	}
	base.HashedAt = hashedAt

	hash, ok := childText(el, "Huella")
	if !ok {
		return missingElement("sum1:Huella")
	}
	base.Hash = hash
	return nil
}

// importInvoiceID acepta los nombres de elemento con y sin sufijo "Anulada".
func importInvoiceID(el *etree.Element) (record.InvoiceIdentifier, error) {
	issuerID, ok := childText(el, "IDEmisorFactura")
	if !ok {
		issuerID, ok = childText(el, "IDEmisorFacturaAnulada")
	}
	if !ok {
		return record.InvoiceIdentifier{}, missingElement("sum1:IDEmisorFactura")
	}

	invoiceNumber, ok := childText(el, "NumSerieFactura")
	if !ok {
		invoiceNumber, ok = childText(el, "NumSerieFacturaAnulada")
	}
	if !ok {
		return record.InvoiceIdentifier{}, missingElement("sum1:NumSerieFactura")
	}

	rawIssueDate, ok := childText(el, "FechaExpedicionFactura")
	if !ok {
		rawIssueDate, ok = childText(el, "FechaExpedicionFacturaAnulada")
	}
	if !ok {
		return record.InvoiceIdentifier{}, missingElement("sum1:FechaExpedicionFactura")
	}
	issueDate, err := time.Parse(record.DateLayout, rawIssueDate)
	if err != nil {
		return record.InvoiceIdentifier{}, invalidValue("sum1:FechaExpedicionFactura")
	}

	return record.NewInvoiceIdentifier(issuerID, invoiceNumber, issueDate), nil
}

func importRecipient(el *etree.Element) (record.Recipient, error) {
	name, ok := childText(el, "NombreRazon")
	if !ok {
		return nil, missingElementFrom("sum1:NombreRazon", "sum1:IDDestinatario")
	}

	// Identificador fiscal español
	if nif, ok := childText(el, "NIF"); ok {
		return record.FiscalIdentifier{Name: name, NIF: nif}, nil
	}

	// Identificador extranjero
	idOtro := findChild(el, "IDOtro")
	if idOtro == nil {
		return nil, missingElementFrom("sum1:IDOtro", "sum1:IDDestinatario")
	}
	country, _ := childText(idOtro, "CodigoPais")
	rawType, ok := childText(idOtro, "IDType")
	if !ok {
		return nil, missingElementFrom("sum1:IDType", "sum1:IDDestinatario")
	}
	idType := verifactu.ForeignIdType(rawType)
	if !idType.Valid() {
		return nil, invalidValueFrom("sum1:IDType", "sum1:IDDestinatario")
	}
	value, ok := childText(idOtro, "ID")
	if !ok {
		return nil, missingElementFrom("sum1:ID", "sum1:IDDestinatario")
	}
	return record.ForeignFiscalIdentifier{Name: name, Country: country, Type: idType, Value: value}, nil
}

func importBreakdownEntry(el *etree.Element) (record.BreakdownEntry, error) {
	var entry record.BreakdownEntry

	rawTaxType, ok := childText(el, "Impuesto")
	if !ok {
		return entry, missingElementFrom("sum1:Impuesto", "sum1:DetalleDesglose")
	}
	taxType := verifactu.TaxType(rawTaxType)
	if !taxType.Valid() {
		return entry, invalidValue("sum1:Impuesto")
	}
	entry.TaxType = taxType

	rawRegimeType, ok := childText(el, "ClaveRegimen")
	if !ok {
		return entry, missingElementFrom("sum1:ClaveRegimen", "sum1:DetalleDesglose")
	}
	regimeType := verifactu.RegimeType(rawRegimeType)
	if !regimeType.Valid() {
		return entry, invalidValue("sum1:ClaveRegimen")
	}
	entry.RegimeType = regimeType

	rawOperationType, ok := childText(el, "CalificacionOperacion")
	if !ok {
		rawOperationType, ok = childText(el, "OperacionExenta")
	}
	if !ok {
		return entry, missingElementFrom("sum1:CalificacionOperacion", "sum1:DetalleDesglose")
	}
	operationType := verifactu.OperationType(rawOperationType)
	if !operationType.Valid() {
		return entry, invalidValue("sum1:CalificacionOperacion")
	}
	entry.OperationType = operationType

	baseAmount, ok := childText(el, "BaseImponibleOimporteNoSujeto")
	if !ok {
		return entry, missingElementFrom("sum1:BaseImponibleOimporteNoSujeto", "sum1:DetalleDesglose")
	}
	entry.BaseAmount = baseAmount

	entry.TaxRate = optionalText(el, "TipoImpositivo")
	entry.TaxAmount = optionalText(el, "CuotaRepercutida")
	entry.SurchargeRate = optionalText(el, "TipoRecargoEquivalencia")
	entry.SurchargeAmount = optionalText(el, "CuotaRecargoEquivalencia")
	entry.ExemptReasonCode = optionalText(el, "CausaExencion")
	entry.ExemptReason = optionalText(el, "DescripcionExencion")

	return entry, nil
}

// ImportComputerSystem reconstruye el bloque SistemaInformatico.
func ImportComputerSystem(el *etree.Element) (record.ComputerSystem, error) {
	var s record.ComputerSystem
	fields := []struct {
		element string
		target  *string
	}{
		{"NombreRazon", &s.VendorName},
		{"NIF", &s.VendorNIF},
		{"NombreSistemaInformatico", &s.Name},
		{"IdSistemaInformatico", &s.ID},
		{"Version", &s.Version},
		{"NumeroInstalacion", &s.InstallationNumber},
	}
	for _, f := range fields {
		value, ok := childText(el, f.element)
		if !ok {
			return s, missingElement("sum1:" + f.element)
		}
		*f.target = value
	}
	s.OnlySupportsVerifactu = textOrDefault(el, "TipoUsoPosibleSoloVerifactu", "N") == "S"
	s.SupportsMultipleTaxpayers = textOrDefault(el, "TipoUsoPosibleMultiOT", "N") == "S"
	s.HasMultipleTaxpayers = textOrDefault(el, "IndicadorMultiplesOT", "N") == "S"
	return s, nil
}

// ── Utilidades de árbol ───────────────────────────────────────────────────────

// Los elementos se buscan por nombre local, ignorando el prefijo: los
// documentos de la AEAT llegan con prefijos variables (sum1, tik...) para los
// mismos espacios de nombres.

func findChild(el *etree.Element, local string) *etree.Element {
	if el == nil {
		return nil
	}
	for _, child := range el.ChildElements() {
		if child.Tag == local {
			return child
		}
	}
	return nil
}

func findChildren(el *etree.Element, local string) []*etree.Element {
	if el == nil {
		return nil
	}
	var out []*etree.Element
	for _, child := range el.ChildElements() {
		if child.Tag == local {
			out = append(out, child)
		}
	}
	return out
}

func findPath(el *etree.Element, locals ...string) *etree.Element {
	for _, local := range locals {
		el = findChild(el, local)
		if el == nil {
			return nil
		}
	}
	return el
}

func childText(el *etree.Element, local string) (string, bool) {
	child := findChild(el, local)
	if child == nil {
		return "", false
	}
	return strings.TrimSpace(child.Text()), true
}

func textOrDefault(el *etree.Element, local, fallback string) string {
	if value, ok := childText(el, local); ok {
		return value
	}
	return fallback
}

func optionalText(el *etree.Element, local string) *string {
	if value, ok := childText(el, local); ok {
		return &value
	}
	return nil
}

func addText(parent *etree.Element, tag, text string) *etree.Element {
	el := parent.CreateElement(tag)
	el.SetText(text)
	return el
}

func boolIndicator(value bool) string {
	if value {
		return "S"
	}
	return "N"
}
