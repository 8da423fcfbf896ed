// Package verifactu contiene los catálogos de códigos del sistema VERI*FACTU
// de la AEAT (España), según los esquemas SuministroInformacion.xsd.
package verifactu

// =============================================================================
// L1 - Tipos de impuesto (Impuesto)
// =============================================================================

// TaxType identifica el impuesto aplicado en una línea de desglose.
type TaxType string

const (
	TaxTypeIVA   TaxType = "01" // Impuesto sobre el Valor Añadido
	TaxTypeIPSI  TaxType = "02" // Impuesto sobre la Producción, los Servicios y la Importación (Ceuta y Melilla)
	TaxTypeIGIC  TaxType = "03" // Impuesto General Indirecto Canario
	TaxTypeOther TaxType = "05" // Otros
)

// Valid indica si el código de impuesto pertenece al catálogo.
func (t TaxType) Valid() bool {
	switch t {
	case TaxTypeIVA, TaxTypeIPSI, TaxTypeIGIC, TaxTypeOther:
		return true
	}
	return false
}

// =============================================================================
// L8A - Claves de régimen (ClaveRegimen)
// =============================================================================

// RegimeType identifica el régimen de IVA u operación con trascendencia tributaria.
type RegimeType string

const (
	RegimeC01 RegimeType = "01" // Operación de régimen general
	RegimeC02 RegimeType = "02" // Exportación
	RegimeC03 RegimeType = "03" // Bienes usados, objetos de arte, antigüedades y objetos de colección
	RegimeC04 RegimeType = "04" // Oro de inversión
	RegimeC05 RegimeType = "05" // Agencias de viajes
	RegimeC06 RegimeType = "06" // Grupos de entidades (nivel avanzado)
	RegimeC07 RegimeType = "07" // Criterio de caja
	RegimeC08 RegimeType = "08" // Operaciones sujetas a IPSI o IGIC
	RegimeC09 RegimeType = "09" // Mediación de agencias de viaje en nombre y por cuenta ajena
	RegimeC10 RegimeType = "10" // Cobros por cuenta de terceros
	RegimeC11 RegimeType = "11" // Arrendamiento de local de negocio
	RegimeC14 RegimeType = "14" // Certificaciones de obra (destinataria Administración Pública)
	RegimeC15 RegimeType = "15" // Operaciones de tracto sucesivo
	RegimeC17 RegimeType = "17" // Régimen OSS e IOSS
	RegimeC18 RegimeType = "18" // Recargo de equivalencia
	RegimeC19 RegimeType = "19" // Actividades REAGYP
	RegimeC20 RegimeType = "20" // Régimen simplificado
)

// Valid indica si la clave de régimen pertenece al catálogo.
func (r RegimeType) Valid() bool {
	switch r {
	case RegimeC01, RegimeC02, RegimeC03, RegimeC04, RegimeC05, RegimeC06,
		RegimeC07, RegimeC08, RegimeC09, RegimeC10, RegimeC11, RegimeC14,
		RegimeC15, RegimeC17, RegimeC18, RegimeC19, RegimeC20:
		return true
	}
	return false
}

// =============================================================================
// L9 / L10 - Calificación de la operación (CalificacionOperacion / OperacionExenta)
// Un mismo catálogo cubre ambos elementos: S1/S2/N1/N2 van en
// CalificacionOperacion y E1..E6 en OperacionExenta.
// =============================================================================

// OperationType califica una operación a efectos de IVA.
type OperationType string

const (
	OperationSubject              OperationType = "S1" // Sujeta y no exenta, sin inversión del sujeto pasivo
	OperationSubjectReversal      OperationType = "S2" // Sujeta y no exenta, con inversión del sujeto pasivo
	OperationNonSubject           OperationType = "N1" // No sujeta (artículos 7, 14 y otros)
	OperationNonSubjectByLocation OperationType = "N2" // No sujeta por reglas de localización
	OperationExemptArt20          OperationType = "E1" // Exenta por el artículo 20
	OperationExemptArt21          OperationType = "E2" // Exenta por el artículo 21
	OperationExemptArt22          OperationType = "E3" // Exenta por el artículo 22
	OperationExemptArt23And24     OperationType = "E4" // Exenta por los artículos 23 y 24
	OperationExemptArt25          OperationType = "E5" // Exenta por el artículo 25
	OperationExemptOther          OperationType = "E6" // Exenta por otros motivos
)

// Valid indica si la calificación pertenece al catálogo.
func (o OperationType) Valid() bool {
	return o.IsSubject() || o.IsNonSubject() || o.IsExempt()
}

// IsSubject indica si la operación está sujeta y no exenta (S1 o S2).
func (o OperationType) IsSubject() bool {
	return o == OperationSubject || o == OperationSubjectReversal
}

// IsNonSubject indica si la operación no está sujeta (N1 o N2).
func (o OperationType) IsNonSubject() bool {
	return o == OperationNonSubject || o == OperationNonSubjectByLocation
}

// IsExempt indica si la operación está sujeta pero exenta (E1..E6).
func (o OperationType) IsExempt() bool {
	switch o {
	case OperationExemptArt20, OperationExemptArt21, OperationExemptArt22,
		OperationExemptArt23And24, OperationExemptArt25, OperationExemptOther:
		return true
	}
	return false
}

// =============================================================================
// L2 - Tipos de factura (TipoFactura)
// =============================================================================

// InvoiceType identifica el tipo de factura de un registro de alta.
type InvoiceType string

const (
	InvoiceTypeInvoice               InvoiceType = "F1" // Factura
	InvoiceTypeSimplified            InvoiceType = "F2" // Factura simplificada o sin identificación del destinatario
	InvoiceTypeSubstitute            InvoiceType = "F3" // Factura emitida en sustitución de simplificadas
	InvoiceTypeCorrectiveArt80_1     InvoiceType = "R1" // Rectificativa (error fundado en derecho y art. 80.Uno, Dos y Seis)
	InvoiceTypeCorrectiveArt80_3     InvoiceType = "R2" // Rectificativa (artículo 80.Tres)
	InvoiceTypeCorrectiveArt80_4     InvoiceType = "R3" // Rectificativa (artículo 80.Cuatro)
	InvoiceTypeCorrectiveOther       InvoiceType = "R4" // Rectificativa (resto)
	InvoiceTypeCorrectiveSimplified  InvoiceType = "R5" // Rectificativa de facturas simplificadas
)

// Valid indica si el tipo de factura pertenece al catálogo.
func (t InvoiceType) Valid() bool {
	switch t {
	case InvoiceTypeInvoice, InvoiceTypeSimplified, InvoiceTypeSubstitute,
		InvoiceTypeCorrectiveArt80_1, InvoiceTypeCorrectiveArt80_3,
		InvoiceTypeCorrectiveArt80_4, InvoiceTypeCorrectiveOther,
		InvoiceTypeCorrectiveSimplified:
		return true
	}
	return false
}

// IsSimplified indica si la factura es simplificada (F2 o R5): puede no
// identificar destinatarios.
func (t InvoiceType) IsSimplified() bool {
	return t == InvoiceTypeSimplified || t == InvoiceTypeCorrectiveSimplified
}

// IsCorrective indica si la factura es rectificativa (R1..R5).
func (t InvoiceType) IsCorrective() bool {
	switch t {
	case InvoiceTypeCorrectiveArt80_1, InvoiceTypeCorrectiveArt80_3,
		InvoiceTypeCorrectiveArt80_4, InvoiceTypeCorrectiveOther,
		InvoiceTypeCorrectiveSimplified:
		return true
	}
	return false
}

// =============================================================================
// L3 - Tipos de rectificativa (TipoRectificativa)
// =============================================================================

// CorrectiveType identifica la modalidad de una factura rectificativa.
type CorrectiveType string

const (
	CorrectiveTypeSubstitution CorrectiveType = "S" // Por sustitución
	CorrectiveTypeDifferences  CorrectiveType = "I" // Por diferencias
)

// Valid indica si la modalidad de rectificativa pertenece al catálogo.
func (c CorrectiveType) Valid() bool {
	return c == CorrectiveTypeSubstitution || c == CorrectiveTypeDifferences
}

// =============================================================================
// L7 - Tipos de identificación en país distinto de España (IDType)
// =============================================================================

// ForeignIdType identifica el tipo de documento de un destinatario sin NIF español.
type ForeignIdType string

const (
	ForeignIdTypeVAT          ForeignIdType = "02" // NIF-IVA intracomunitario
	ForeignIdTypePassport     ForeignIdType = "03" // Pasaporte
	ForeignIdTypeNationalId   ForeignIdType = "04" // Documento oficial de identificación del país de residencia
	ForeignIdTypeResidence    ForeignIdType = "05" // Certificado de residencia
	ForeignIdTypeOther        ForeignIdType = "06" // Otro documento probatorio
	ForeignIdTypeUnregistered ForeignIdType = "07" // No censado
)

// Valid indica si el tipo de identificación pertenece al catálogo.
func (f ForeignIdType) Valid() bool {
	switch f {
	case ForeignIdTypeVAT, ForeignIdTypePassport, ForeignIdTypeNationalId,
		ForeignIdTypeResidence, ForeignIdTypeOther, ForeignIdTypeUnregistered:
		return true
	}
	return false
}

// =============================================================================
// Indicador tri-estado de rechazo previo (RechazoPrevio)
// =============================================================================

// PriorRejection indica si el registro subsana otro rechazado por la AEAT.
type PriorRejection string

const (
	PriorRejectionNo            PriorRejection = "N" // No hubo rechazo previo (valor por defecto)
	PriorRejectionYes           PriorRejection = "S" // Subsana un registro previamente rechazado
	PriorRejectionNotRegistered PriorRejection = "X" // Subsana un registro que nunca llegó a registrarse
)

// Valid indica si el indicador pertenece al catálogo. La cadena vacía se
// admite y equivale a "N".
func (p PriorRejection) Valid() bool {
	switch p {
	case "", PriorRejectionNo, PriorRejectionYes, PriorRejectionNotRegistered:
		return true
	}
	return false
}

// Set indica si el indicador declara un rechazo previo ("S" o "X").
func (p PriorRejection) Set() bool {
	return p == PriorRejectionYes || p == PriorRejectionNotRegistered
}
