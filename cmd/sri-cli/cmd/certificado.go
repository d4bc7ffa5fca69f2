package cmd

import (
	"crypto/x509"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/facturacion-sri/internal/infrastructure/sri/signer"
)

type certificadoOutput struct {
	Subject      string    `json:"sujeto"`
	Issuer       string    `json:"emisor"`
	Serial       string    `json:"serial"`
	NotBefore    time.Time `json:"vigente_desde"`
	NotAfter     time.Time `json:"vigente_hasta"`
	DaysLeft     int       `json:"dias_restantes"`
	ChainLength  int       `json:"cadena"`
	DigestSHA1   string    `json:"digest_sha1"`
	KeyAlgorithm string    `json:"algoritmo_llave"`
}

func newCertificadoCmd() *cobra.Command {
	var cert certFlags
	cmd := &cobra.Command{
		Use:   "certificado",
		Short: "Diagnosticar el certificado de firma",
		Long: `Carga el certificado con la contraseña de SRI_CERT_PASSWORD y muestra sujeto,
emisor, serial y vigencia. Nunca imprime la llave ni la contraseña.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := cert.load()
			if err != nil {
				return err
			}
			if len(c.Certificate) == 0 {
				return fmt.Errorf("certificado sin cadena")
			}
			leaf := c.Leaf
			if leaf == nil {
				if leaf, err = x509.ParseCertificate(c.Certificate[0]); err != nil {
					return fmt.Errorf("certificado ilegible: %w", err)
				}
			}
			digest, issuer, serial := signer.CertDigestAndIssuerSerial(leaf)
			return printJSON(cmd.OutOrStdout(), certificadoOutput{
				Subject:      leaf.Subject.String(),
				Issuer:       issuer,
				Serial:       serial,
				NotBefore:    leaf.NotBefore,
				NotAfter:     leaf.NotAfter,
				DaysLeft:     int(time.Until(leaf.NotAfter).Hours() / 24),
				ChainLength:  len(c.Certificate),
				DigestSHA1:   digest,
				KeyAlgorithm: leaf.PublicKeyAlgorithm.String(),
			})
		},
	}
	cert.register(cmd)
	return cmd
}
