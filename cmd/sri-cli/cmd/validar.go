package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	infrasri "github.com/jhoicas/facturacion-sri/internal/infrastructure/sri"
)

func newValidarCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validar <archivo.xml>",
		Short: "Validar un comprobante contra el esquema del SRI",
		Long: `Valida factura o notaCredito (versión 1.1.0) contra las reglas de esquema que
aplica el pipeline antes de firmar. Lista todas las violaciones encontradas.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("leer %s: %w", args[0], err)
			}
			violations := infrasri.NewSchemaValidator().Check(data)
			out := cmd.OutOrStdout()
			if len(violations) == 0 {
				fmt.Fprintf(out, "%s: válido\n", args[0])
				return nil
			}
			for _, v := range violations {
				fmt.Fprintf(out, "  %s\n", v)
			}
			return fmt.Errorf("%s: %d violaciones de esquema", args[0], len(violations))
		},
	}
}
