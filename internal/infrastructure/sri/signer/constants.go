// Constantes para firma XAdES-BES (Ficha técnica de comprobantes electrónicos SRI).

package signer

// Namespaces y algoritmos XMLDSig / XAdES. El SRI exige RSA-SHA1 y C14N inclusivo.
const (
	NamespaceDS        = "http://www.w3.org/2000/09/xmldsig#"
	NamespaceXAdES     = "http://uri.etsi.org/01903/v1.3.2#"
	AlgC14N            = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	AlgRSASHA1         = "http://www.w3.org/2000/09/xmldsig#rsa-sha1"
	AlgSHA1            = "http://www.w3.org/2000/09/xmldsig#sha1"
	TransformEnveloped = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
	TypeSignedProps    = "http://uri.etsi.org/01903#SignedProperties"
)

// Prefijos con los que se serializa la firma.
const (
	prefixDS    = "ds"
	prefixXAdES = "etsi"
)

// ComprobanteID es el Id del elemento raíz al que apunta la referencia del documento.
const ComprobanteID = "comprobante"

const (
	dataObjectDescription = "contenido comprobante"
	dataObjectMimeType    = "text/xml"
)
