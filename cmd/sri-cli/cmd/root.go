// Package cmd implementa sri-cli: herramientas de operación sobre comprobantes del
// SRI (clave de acceso, validación, firma, consulta de autorización y tokens).
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhoicas/facturacion-sri/pkg/config"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
)

var (
	version = "1.0.0"

	verbose bool
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sri-cli",
		Short: "Herramientas de facturación electrónica SRI (Ecuador)",
		Long: `sri-cli agrupa operaciones puntuales sobre comprobantes electrónicos del SRI.

Ejemplos:
  # Generar una clave de acceso
  sri-cli clave generar --ruc 1791234567001 --secuencial 1 --fecha 2026-02-22

  # Validar y descomponer una clave
  sri-cli clave validar 2202202601179123456700110010010000000011234567811

  # Validar un XML contra el esquema y firmarlo
  sri-cli validar factura.xml
  sri-cli firmar factura.xml -o factura_firmada.xml --cert firma.p12

  # Consultar la autorización en el SRI
  sri-cli consultar 2202202601179123456700110010010000000011234567811 --esperar`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Salida detallada (logs de nivel debug)")

	root.AddCommand(
		newClaveCmd(),
		newValidarCmd(),
		newFirmarCmd(),
		newVerificarCmd(),
		newConsultarCmd(),
		newCertificadoCmd(),
		newTokenCmd(),
	)
	return root
}

// Execute ejecuta el comando raíz.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig lee la misma configuración que la API (env y .env).
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("cargar configuración: %w", err)
	}
	return cfg, nil
}

// newLogger solo emite con --verbose; la salida normal del CLI es JSON en stdout.
func newLogger() *logger.Logger {
	if !verbose {
		return logger.Nop()
	}
	return logger.New(logger.Config{Env: "development", Level: "debug"})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printVerbose(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
