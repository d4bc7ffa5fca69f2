package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/facturacion-sri/pkg/jwt"
)

func newTokenCmd() *cobra.Command {
	var (
		userID    string
		companyID string
		role      string
		expMin    int
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Emitir un token Bearer para la API",
		Long: `Firma un JWT con JWT_SECRET y JWT_ISSUER. Los roles admin ven todos los
emisores; emisor y auditor quedan limitados a --empresa.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.JWT.Secret == "" {
				return fmt.Errorf("JWT_SECRET no configurado")
			}
			if role != jwt.RoleAdmin && companyID == "" {
				return fmt.Errorf("--empresa es obligatorio para el rol %s", role)
			}
			if expMin <= 0 {
				expMin = cfg.JWT.Expiration
			}
			tok, err := jwt.Generate(cfg.JWT.Secret, userID, companyID, role, cfg.JWT.Issuer, expMin)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&userID, "usuario", "sri-cli", "Identificador del usuario (sub)")
	f.StringVar(&companyID, "empresa", "", "ID del emisor")
	f.StringVar(&role, "rol", jwt.RoleEmisor, "Rol: admin, emisor o auditor")
	f.IntVar(&expMin, "expira", 0, "Minutos de vigencia (por defecto JWT_EXPIRATION_MINUTES)")
	return cmd
}
