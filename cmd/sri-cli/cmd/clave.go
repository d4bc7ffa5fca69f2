package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	domainsri "github.com/jhoicas/facturacion-sri/internal/domain/sri"
	"github.com/jhoicas/facturacion-sri/pkg/sri"
)

type claveOutput struct {
	AccessKey     string `json:"clave_acceso"`
	IssueDate     string `json:"fecha_emision"`
	DocType       string `json:"cod_doc"`
	RUC           string `json:"ruc"`
	Environment   string `json:"ambiente"`
	Establishment string `json:"estab"`
	EmissionPoint string `json:"pto_emi"`
	Sequence      string `json:"secuencial"`
	NumericCode   string `json:"codigo_numerico"`
	EmissionType  string `json:"tipo_emision"`
	CheckDigit    int    `json:"digito_verificador"`
}

func newClaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clave",
		Short: "Generar o validar claves de acceso de 49 dígitos",
	}
	cmd.AddCommand(newClaveGenerarCmd(), newClaveValidarCmd())
	return cmd
}

func newClaveGenerarCmd() *cobra.Command {
	var (
		in    domainsri.AccessKeyInput
		fecha string
	)
	cmd := &cobra.Command{
		Use:   "generar",
		Short: "Generar una clave de acceso",
		Long: `Genera la clave de acceso con módulo 11. Sin --codigo se usa un código
numérico aleatorio de 8 dígitos.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			date, err := time.Parse(time.DateOnly, fecha)
			if err != nil {
				return fmt.Errorf("fecha inválida %q (formato AAAA-MM-DD): %w", fecha, err)
			}
			in.IssueDate = date
			if in.NumericCode == "" {
				if in.NumericCode, err = domainsri.RandomNumericCode(); err != nil {
					return err
				}
			}
			key, err := domainsri.GenerateAccessKey(in)
			if err != nil {
				return err
			}
			printVerbose("clave generada para %s-%s-%09d\n", in.Establishment, in.EmissionPoint, in.Sequence)
			return describeKey(cmd, key)
		},
	}
	f := cmd.Flags()
	f.StringVar(&fecha, "fecha", time.Now().Format(time.DateOnly), "Fecha de emisión (AAAA-MM-DD)")
	f.StringVar(&in.DocType, "tipo", sri.DocFactura, "codDoc (01 factura, 04 nota de crédito)")
	f.StringVar(&in.RUC, "ruc", "", "RUC del emisor (13 dígitos)")
	f.StringVar(&in.Environment, "ambiente", sri.EnvironmentTest, "Ambiente: 1 pruebas, 2 producción")
	f.StringVar(&in.Establishment, "estab", "001", "Código de establecimiento")
	f.StringVar(&in.EmissionPoint, "pto", "001", "Código de punto de emisión")
	f.Int64Var(&in.Sequence, "secuencial", 0, "Secuencial (1..999999999)")
	f.StringVar(&in.NumericCode, "codigo", "", "Código numérico de 8 dígitos")
	f.StringVar(&in.EmissionType, "tipo-emision", sri.EmissionNormal, "Tipo de emisión")
	_ = cmd.MarkFlagRequired("ruc")
	_ = cmd.MarkFlagRequired("secuencial")
	return cmd
}

func newClaveValidarCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validar <clave>",
		Short: "Validar el dígito verificador y descomponer una clave",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return describeKey(cmd, args[0])
		},
	}
}

func describeKey(cmd *cobra.Command, key string) error {
	parts, err := domainsri.ParseAccessKey(key)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), claveOutput{
		AccessKey:     key,
		IssueDate:     parts.IssueDate.Format(time.DateOnly),
		DocType:       parts.DocType,
		RUC:           parts.RUC,
		Environment:   parts.Environment,
		Establishment: parts.Establishment,
		EmissionPoint: parts.EmissionPoint,
		Sequence:      fmt.Sprintf("%09d", parts.Sequence),
		NumericCode:   parts.NumericCode,
		EmissionType:  parts.EmissionType,
		CheckDigit:    parts.CheckDigit,
	})
}
