package cmd

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/metrics"
	infrasri "github.com/jhoicas/facturacion-sri/internal/infrastructure/sri"
)

type consultarOutput struct {
	AccessKey    string                    `json:"clave_acceso"`
	Status       string                    `json:"estado"`
	Number       string                    `json:"numero_autorizacion,omitempty"`
	AuthorizedAt *time.Time                `json:"fecha_autorizacion,omitempty"`
	Environment  string                    `json:"ambiente,omitempty"`
	Messages     []entity.AuthorityMessage `json:"mensajes,omitempty"`
	XML          string                    `json:"comprobante,omitempty"`
}

func newConsultarCmd() *cobra.Command {
	var (
		wait    bool
		withXML bool
	)
	cmd := &cobra.Command{
		Use:   "consultar <clave>",
		Short: "Consultar la autorización de un comprobante en el SRI",
		Long: `Consulta autorizacionComprobante en el ambiente que indica la clave de acceso.
Con --esperar sondea mientras el SRI responda EN PROCESO, con los límites de
SRI_POLL_ATTEMPTS, SRI_POLL_DELAY_MS y SRI_POLL_MAX_SECONDS.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client := infrasri.NewSOAPClient(cfg.SRI, newLogger(), metrics.NewWith(prometheus.NewRegistry()))

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.SRI.PollMaxDuration+2*cfg.SRI.Timeout)
			defer cancel()

			var res *entity.AuthorizationResult
			if wait {
				res, err = client.AwaitAuthorization(ctx, args[0])
			} else {
				res, err = client.QueryAuthorization(ctx, args[0])
			}
			if err != nil {
				return err
			}

			out := consultarOutput{
				AccessKey:   args[0],
				Status:      res.Status,
				Number:      res.Number,
				Environment: res.Environment,
				Messages:    res.Messages,
			}
			if !res.AuthorizedAt.IsZero() {
				out.AuthorizedAt = &res.AuthorizedAt
			}
			if withXML {
				out.XML = string(res.Voucher)
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&wait, "esperar", false, "Sondear hasta una disposición final")
	cmd.Flags().BoolVar(&withXML, "xml", false, "Incluir el comprobante autorizado")
	return cmd
}
