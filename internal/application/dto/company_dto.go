package dto

import "time"

// CreateCompanyRequest entrada para registrar un emisor (perfil de firma).
type CreateCompanyRequest struct {
	RUC                  string             `json:"ruc" validate:"required,len=13,numeric"`
	LegalName            string             `json:"legal_name" validate:"required,min=1,max=300"`
	TradeName            string             `json:"trade_name" validate:"max=300"`
	HeadOfficeAddress    string             `json:"head_office_address" validate:"required,max=300"`
	EstablishmentAddress string             `json:"establishment_address" validate:"max=300"`
	Establishment        string             `json:"establishment" validate:"required,len=3,numeric"`
	EmissionPoint        string             `json:"emission_point" validate:"required,len=3,numeric"`
	Environment          string             `json:"environment" validate:"omitempty,oneof=1 2"`
	AccountingRequired   bool               `json:"accounting_required"`
	SpecialTaxpayer      string             `json:"special_taxpayer" validate:"max=13"`
	Email                string             `json:"email" validate:"omitempty,email"`
	Certificate          CertificateRequest `json:"certificate"`
}

// CertificateRequest referencia al certificado en el almacén del servidor.
// La contraseña solo se recibe; nunca se devuelve.
type CertificateRequest struct {
	Path     string `json:"path" validate:"max=500"`
	KeyPath  string `json:"key_path" validate:"max=500"`
	Password string `json:"password" validate:"max=200"`
}

// CompanyResponse salida de un emisor (sin datos sensibles).
type CompanyResponse struct {
	ID                   string    `json:"id"`
	RUC                  string    `json:"ruc"`
	LegalName            string    `json:"legal_name"`
	TradeName            string    `json:"trade_name,omitempty"`
	HeadOfficeAddress    string    `json:"head_office_address"`
	EstablishmentAddress string    `json:"establishment_address,omitempty"`
	Establishment        string    `json:"establishment"`
	EmissionPoint        string    `json:"emission_point"`
	Environment          string    `json:"environment,omitempty"`
	AccountingRequired   bool      `json:"accounting_required"`
	SpecialTaxpayer      string    `json:"special_taxpayer,omitempty"`
	Email                string    `json:"email,omitempty"`
	HasCertificate       bool      `json:"has_certificate"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
