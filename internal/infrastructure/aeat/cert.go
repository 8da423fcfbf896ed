// Carga de certificado desde .p12 (PKCS#12) o par PEM, y detección de
// certificados de sello de entidad para elegir el endpoint de pruebas.

package aeat

import (
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pkcs12"
)

// OIDs de nombre de pila y apellido en el subject X.509. Los certificados
// personales (incluido el de representante) los llevan; los sellos de
// entidad no.
var (
	oidGivenName = asn1.ObjectIdentifier{2, 5, 4, 42}
	oidSurname   = asn1.ObjectIdentifier{2, 5, 4, 4}
)

// LoadCertificate carga el certificado cliente para el TLS mutuo con la
// AEAT. Los archivos con extensión .p12 o .pfx se tratan como PKCS#12; el
// resto como PEM con certificado y llave combinados.
func LoadCertificate(path, password string) (tls.Certificate, error) {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".p12") || strings.HasSuffix(lower, ".pfx") {
		return loadFromP12(path, password)
	}
	cert, err := tls.LoadX509KeyPair(path, path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("cargar PEM: %w", err)
	}
	if cert.Leaf == nil && len(cert.Certificate) > 0 {
		cert.Leaf, _ = x509.ParseCertificate(cert.Certificate[0])
	}
	return cert, nil
}

func loadFromP12(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("leer p12: %w", err)
	}
	priv, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decodificar p12: %w", err)
	}
	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  priv,
		Leaf:        cert,
	}, nil
}

// isEntitySealCertificate detecta si el certificado es un sello de entidad
// (Sello Electrónico). La AEAT expone un endpoint de pruebas distinto para
// estos certificados.
//
//  1. "CSE " (Certificado Sello Electrónico) en el Common Name
//  2. "Sello" en el Common Name o en la Organizational Unit
//  3. Heurística: hay organización pero no nombre de persona física
func isEntitySealCertificate(cert *x509.Certificate) bool {
	if cert == nil {
		return false
	}
	subject := cert.Subject

	cn := strings.ToLower(subject.CommonName)
	if strings.Contains(cn, "cse ") {
		return true
	}
	if strings.Contains(cn, "sello") {
		return true
	}
	for _, ou := range subject.OrganizationalUnit {
		if strings.Contains(strings.ToLower(ou), "sello") {
			return true
		}
	}

	hasOrganization := len(subject.Organization) > 0
	return hasOrganization && !hasPersonName(subject)
}

func hasPersonName(subject pkix.Name) bool {
	for _, attr := range subject.Names {
		if attr.Type.Equal(oidGivenName) || attr.Type.Equal(oidSurname) {
			return true
		}
	}
	return false
}
