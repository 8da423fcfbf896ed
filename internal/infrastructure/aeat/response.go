package aeat

import (
	"strconv"
	"time"

	"github.com/beevik/etree"

	"github.com/facturable/verifactu-sif/internal/domain/record"
)

// ResponseStatus es el estado global de un envío según la AEAT.
type ResponseStatus string

const (
	ResponseCorrect          ResponseStatus = "Correcto"
	ResponsePartiallyCorrect ResponseStatus = "ParcialmenteCorrecto"
	ResponseIncorrect        ResponseStatus = "Incorrecto"
)

// ItemStatus es el estado de un registro individual dentro del envío.
type ItemStatus string

const (
	ItemCorrect            ItemStatus = "Correcto"
	ItemAcceptedWithErrors ItemStatus = "AceptadoConErrores"
	ItemIncorrect          ItemStatus = "Incorrecto"
)

// RecordType es el tipo de operación que la AEAT reporta por línea.
type RecordType string

const (
	RecordTypeRegistration RecordType = "Alta"
	RecordTypeCancellation RecordType = "Anulacion"
)

// Response es la respuesta del servidor de la AEAT a una remisión de
// registros de facturación.
type Response struct {
	// CSV del envío. Solo se genera si el envío no fue rechazado.
	CSV string
	// Momento de presentación asignado por la AEAT. Cero si el envío fue
	// rechazado.
	SubmittedAt time.Time
	// Segundos que el sistema debe esperar antes del siguiente envío.
	WaitSeconds int
	// Estado global del envío.
	Status ResponseStatus
	// Estado detallado de cada registro remitido.
	Items []ResponseItem
}

// ResponseItem es el resultado de un registro individual.
type ResponseItem struct {
	InvoiceID        record.InvoiceIdentifier
	RecordType       RecordType
	IsCorrection     bool
	Status           ItemStatus
	ErrorCode        string
	ErrorDescription string
}

// Rejected indica si la AEAT rechazó el registro.
func (i ResponseItem) Rejected() bool { return i.Status == ItemIncorrect }

// ParseResponse interpreta el cuerpo de una respuesta SOAP de la AEAT. Un
// SOAP Fault se traduce a un ResponseError con el texto del servidor.
func ParseResponse(payload []byte) (*Response, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(payload); err != nil {
		return nil, newResponseError("Failed to parse response: %s", err)
	}

	envelope := doc.Root()
	if envelope == nil {
		return nil, newResponseError("Missing response envelope")
	}
	body := findChild(envelope, "Body")
	if body == nil {
		return nil, newResponseError("Missing response envelope")
	}

	// Errores de servidor
	if fault := findChild(body, "Fault"); fault != nil {
		if faultString, ok := childText(fault, "faultstring"); ok {
			return nil, newResponseError("%s", faultString)
		}
		return nil, newResponseError("Server returned a SOAP fault")
	}

	root := findChild(body, "RespuestaRegFactuSistemaFacturacion")
	if root == nil {
		return nil, newResponseError("Missing <tikR:RespuestaRegFactuSistemaFacturacion /> element from response")
	}

	resp := &Response{}
	resp.CSV, _ = childText(root, "CSV")

	if rawSubmittedAt, ok := childText(findChild(root, "DatosPresentacion"), "TimestampPresentacion"); ok {
		submittedAt, err := time.Parse(record.TimestampLayout, rawSubmittedAt)
		if err != nil {
			return nil, newResponseError("Invalid submitted at date: %s", rawSubmittedAt)
		}
		resp.SubmittedAt = submittedAt
	}

	if rawWaitSeconds, ok := childText(root, "TiempoEsperaEnvio"); ok {
		waitSeconds, err := strconv.Atoi(rawWaitSeconds)
		if err != nil {
			return nil, newResponseError("Invalid wait seconds: %s", rawWaitSeconds)
		}
		resp.WaitSeconds = waitSeconds
	}

	if rawStatus, ok := childText(root, "EstadoEnvio"); ok {
		switch status := ResponseStatus(rawStatus); status {
		case ResponseCorrect, ResponsePartiallyCorrect, ResponseIncorrect:
			resp.Status = status
		default:
			return nil, newResponseError("Invalid response status: %s", rawStatus)
		}
	}

	for _, line := range findChildren(root, "RespuestaLinea") {
		item, err := parseResponseItem(line)
		if err != nil {
			return nil, err
		}
		resp.Items = append(resp.Items, item)
	}

	return resp, nil
}

func parseResponseItem(el *etree.Element) (ResponseItem, error) {
	var item ResponseItem

	idFactura := findChild(el, "IDFactura")
	item.InvoiceID.IssuerID, _ = childText(idFactura, "IDEmisorFactura")
	item.InvoiceID.InvoiceNumber, _ = childText(idFactura, "NumSerieFactura")
	if rawIssueDate, ok := childText(idFactura, "FechaExpedicionFactura"); ok {
		issueDate, err := time.Parse(record.DateLayout, rawIssueDate)
		if err != nil {
			return item, newResponseError("Invalid invoice issue date: %s", rawIssueDate)
		}
		item.InvoiceID.IssueDate = issueDate
	}

	operacion := findChild(el, "Operacion")
	if rawRecordType, ok := childText(operacion, "TipoOperacion"); ok {
		switch recordType := RecordType(rawRecordType); recordType {
		case RecordTypeRegistration, RecordTypeCancellation:
			item.RecordType = recordType
		default:
			return item, newResponseError("Invalid record type: %s", rawRecordType)
		}
	}
	item.IsCorrection = textOrDefault(operacion, "Subsanacion", "N") == "S"

	if rawStatus, ok := childText(el, "EstadoRegistro"); ok {
		switch status := ItemStatus(rawStatus); status {
		case ItemCorrect, ItemAcceptedWithErrors, ItemIncorrect:
			item.Status = status
		default:
			return item, newResponseError("Invalid record status: %s", rawStatus)
		}
	}

	item.ErrorCode, _ = childText(el, "CodigoErrorRegistro")
	item.ErrorDescription, _ = childText(el, "DescripcionErrorRegistro")

	return item, nil
}
