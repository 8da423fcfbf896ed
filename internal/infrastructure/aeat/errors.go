package aeat

import "fmt"

// ImportError es un fallo estructural al interpretar un documento XML: falta
// un elemento obligatorio o un valor enumerado no pertenece al catálogo.
type ImportError struct {
	msg string
}

func (e *ImportError) Error() string { return e.msg }

func missingElement(name string) error {
	return &ImportError{msg: fmt.Sprintf("Missing <%s /> element", name)}
}

func missingElementFrom(name, parent string) error {
	return &ImportError{msg: fmt.Sprintf("Missing <%s /> from <%s /> element", name, parent)}
}

func invalidValue(name string) error {
	return &ImportError{msg: fmt.Sprintf("Invalid value for <%s /> element", name)}
}

func invalidValueFrom(name, parent string) error {
	return &ImportError{msg: fmt.Sprintf("Invalid value for <%s /> from <%s /> element", name, parent)}
}

// ResponseError es un error devuelto por el servidor de la AEAT: un SOAP
// Fault o una respuesta que no puede interpretarse.
type ResponseError struct {
	msg string
}

func (e *ResponseError) Error() string { return e.msg }

func newResponseError(format string, args ...any) error {
	return &ResponseError{msg: fmt.Sprintf(format, args...)}
}
