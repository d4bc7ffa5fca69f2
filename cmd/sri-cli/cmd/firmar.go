package cmd

import (
	"crypto/tls"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhoicas/facturacion-sri/internal/infrastructure/sri/signer"
)

// certFlags referencia al certificado de firma. Los valores vacíos se completan
// con SRI_CERT_PATH, SRI_CERT_KEY_PATH y SRI_CERT_PASSWORD.
type certFlags struct {
	path    string
	keyPath string
}

func (f *certFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.path, "cert", "", "Certificado .p12/.pfx o PEM (env: SRI_CERT_PATH)")
	cmd.Flags().StringVar(&f.keyPath, "key", "", "Llave privada PEM si --cert es PEM (env: SRI_CERT_KEY_PATH)")
}

// load carga el certificado. La contraseña solo se lee del entorno.
func (f *certFlags) load() (tls.Certificate, error) {
	cfg, err := loadConfig()
	if err != nil {
		return tls.Certificate{}, err
	}
	path, keyPath := f.path, f.keyPath
	if path == "" {
		path, keyPath = cfg.SRI.CertPath, cfg.SRI.CertKeyPath
	}
	printVerbose("cargando certificado %s\n", path)
	return signer.Load(path, keyPath, cfg.SRI.CertPassword)
}

func newFirmarCmd() *cobra.Command {
	var (
		cert   certFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "firmar <archivo.xml>",
		Short: "Firmar un comprobante con XAdES-BES",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("leer %s: %w", args[0], err)
			}
			c, err := cert.load()
			if err != nil {
				return err
			}
			signed, err := signer.NewDigitalSignatureService().Sign(data, c)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(signed)
				return err
			}
			if err := os.WriteFile(output, signed, 0o644); err != nil {
				return fmt.Errorf("escribir %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "comprobante firmado en %s\n", output)
			return nil
		},
	}
	cert.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Archivo de salida (por defecto stdout)")
	return cmd
}

func newVerificarCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verificar <archivo_firmado.xml>",
		Short: "Verificar la firma XAdES-BES de un comprobante",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("leer %s: %w", args[0], err)
			}
			if err := signer.NewDigitalSignatureService().Verify(data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: firma válida\n", args[0])
			return nil
		},
	}
}
