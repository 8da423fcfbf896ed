package record

// ComputerSystem describe el sistema informático de facturación (SIF) que
// genera los registros (elemento SistemaInformatico). Lo aporta el llamador y
// nunca forma parte de la carga canónica de la huella.
type ComputerSystem struct {
	// Nombre-razón social de la persona o entidad productora (NombreRazon).
	VendorName string
	// NIF de la persona o entidad productora (NIF, 9 caracteres).
	VendorNIF string
	// Nombre dado por la productora al SIF (NombreSistemaInformatico).
	Name string
	// Código identificativo del SIF (IdSistemaInformatico, 2 caracteres).
	ID string
	// Versión del SIF (Version).
	Version string
	// Número de instalación del SIF (NumeroInstalacion).
	InstallationNumber string
	// Si solo puede funcionar como VERI*FACTU o también en modo offline
	// (TipoUsoPosibleSoloVerifactu).
	OnlySupportsVerifactu bool
	// Si permite llevar la facturación de varios obligados tributarios
	// (TipoUsoPosibleMultiOT).
	SupportsMultipleTaxpayers bool
	// Si en este momento soporta la facturación de más de un obligado
	// (IndicadorMultiplesOT).
	HasMultipleTaxpayers bool
}

// Validate aplica las reglas de campo del sistema informático.
func (s ComputerSystem) Validate() []Violation {
	var vs []Violation
	checkRequired(&vs, "vendorName", s.VendorName)
	checkMaxLen(&vs, "vendorName", s.VendorName, 120)
	checkExactLen(&vs, "vendorNif", s.VendorNIF, 9)
	checkRequired(&vs, "name", s.Name)
	checkMaxLen(&vs, "name", s.Name, 30)
	checkRequired(&vs, "id", s.ID)
	checkMaxLen(&vs, "id", s.ID, 2)
	checkRequired(&vs, "version", s.Version)
	checkMaxLen(&vs, "version", s.Version, 50)
	checkRequired(&vs, "installationNumber", s.InstallationNumber)
	checkMaxLen(&vs, "installationNumber", s.InstallationNumber, 100)
	return vs
}
