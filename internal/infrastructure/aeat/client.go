package aeat

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/beevik/etree"

	"github.com/facturable/verifactu-sif/internal/domain/record"
)

// ── Constantes de entorno ──────────────────────────────────────────────────────

const (
	soapURLProd           = "https://www1.agenciatributaria.gob.es"
	soapURLTest           = "https://prewww1.aeat.es"
	soapURLTestEntitySeal = "https://prewww10.aeat.es"

	soapPath = "/wlpl/TIKE-CONT/ws/SistemaFacturacion/VerifactuSOAP"
)

// ── Puerto (interfaz) ──────────────────────────────────────────────────────────

// RecordSubmitter define el puerto de salida para la remisión de registros de
// facturación a la AEAT. La implementación concreta usa SOAP; para tests se
// puede inyectar un mock.
type RecordSubmitter interface {
	Send(ctx context.Context, records []record.Record) (*Response, error)
}

// ── Implementación SOAP ────────────────────────────────────────────────────────

// Client remite registros de facturación al servicio web VERI*FACTU de la
// AEAT. Por defecto apunta al entorno de producción.
type Client struct {
	system         record.ComputerSystem
	taxpayer       record.FiscalIdentifier
	representative *record.FiscalIdentifier
	production     bool
	certificate    *tls.Certificate
	httpClient     *http.Client
}

// NewClient construye el cliente con un timeout de red generoso (60 s): el
// servicio de la AEAT puede tardar varios segundos en responder.
func NewClient(system record.ComputerSystem, taxpayer record.FiscalIdentifier) *Client {
	return &Client{
		system:     system,
		taxpayer:   taxpayer,
		production: true,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// SetCertificate instala el certificado cliente para el TLS mutuo que exige
// el servicio.
func (c *Client) SetCertificate(cert tls.Certificate) *Client {
	c.certificate = &cert
	c.httpClient.Transport = &http.Transport{
		TLSClientConfig: &tls.Config{Certificates: []tls.Certificate{cert}},
	}
	return c
}

// SetRepresentative declara al presentador de los registros cuando no es el
// propio obligado tributario. Requiere el formulario GENERALLEY58 en la AEAT.
func (c *Client) SetRepresentative(representative *record.FiscalIdentifier) *Client {
	c.representative = representative
	return c
}

// SetProduction selecciona el entorno: true para producción, false para
// pruebas.
func (c *Client) SetProduction(production bool) *Client {
	c.production = production
	return c
}

// Send remite los registros en un único envío y devuelve la respuesta del
// servidor. Un SOAP Fault o un envío rechazado de plano se devuelve como
// error; los rechazos por línea van dentro de Response.Items.
func (c *Client) Send(ctx context.Context, records []record.Record) (*Response, error) {
	payload, err := c.buildEnvelope(records)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+soapPath,
		bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("aeat: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml")
	req.Header.Set("User-Agent", fmt.Sprintf("Mozilla/5.0 (compatible; %s/%s)", c.system.Name, c.system.Version))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("aeat: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("aeat: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20)) // max 4 MB
	if err != nil {
		return nil, fmt.Errorf("aeat: leer respuesta: %w", err)
	}

	return ParseResponse(rawBody)
}

// buildEnvelope construye el sobre SOAP RegFactuSistemaFacturacion con la
// cabecera del obligado y un RegistroFactura por registro.
func (c *Client) buildEnvelope(records []record.Record) ([]byte, error) {
	doc := etree.NewDocument()
	envelope := doc.CreateElement("soapenv:Envelope")
	envelope.CreateAttr("xmlns:soapenv", NamespaceSoapEnv)
	envelope.CreateAttr("xmlns:sum", NamespaceSum)
	envelope.CreateAttr("xmlns:sum1", NamespaceSum1)
	envelope.CreateElement("soapenv:Header")
	body := envelope.CreateElement("soapenv:Body")
	base := body.CreateElement("sum:RegFactuSistemaFacturacion")

	cabecera := base.CreateElement("sum:Cabecera")
	obligado := cabecera.CreateElement("sum1:ObligadoEmision")
	addText(obligado, "sum1:NombreRazon", c.taxpayer.Name)
	addText(obligado, "sum1:NIF", c.taxpayer.NIF)
	if c.representative != nil {
		representante := cabecera.CreateElement("sum1:Representante")
		addText(representante, "sum1:NombreRazon", c.representative.Name)
		addText(representante, "sum1:NIF", c.representative.NIF)
	}

	for _, rec := range records {
		if el := ExportRecord(base.CreateElement("sum:RegistroFactura"), rec, c.system); el == nil {
			return nil, fmt.Errorf("aeat: tipo de registro desconocido %T", rec)
		}
	}

	return doc.WriteToBytes()
}

// baseURL devuelve la URL base del servicio según el entorno. En pruebas,
// los certificados de sello de entidad usan prewww10 y el resto prewww1.
func (c *Client) baseURL() string {
	if c.production {
		return soapURLProd
	}
	if c.certificate != nil && isEntitySealCertificate(c.certificate.Leaf) {
		return soapURLTestEntitySeal
	}
	return soapURLTest
}
