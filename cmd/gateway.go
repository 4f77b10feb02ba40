package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/flameberry/PrimePatrol/config"
	"github.com/flameberry/PrimePatrol/middleware"
	"github.com/flameberry/PrimePatrol/routes"
	"github.com/flameberry/PrimePatrol/utils"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the authorizing reverse proxy",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(config.ServiceGateway)
		if err != nil {
			return err
		}
		defer rt.close()
		cfg := rt.cfg

		blacklist := utils.NewTokenBlacklist(utils.NewRedis(cfg.Redis))
		var authz middleware.Authorizer = middleware.NewJWTAuthorizer(cfg.Auth.JWTSecret, blacklist)
		if strings.EqualFold(cfg.Auth.Mode, "none") {
			utils.Logger.Warn("gateway authorization disabled")
			authz = middleware.AllowAll{}
		}

		r, err := routes.SetupGatewayRouter(cfg, authz, blacklist)
		if err != nil {
			return err
		}
		return rt.serve(r)
	},
}

func init() {
	rootCmd.AddCommand(gatewayCmd)
}
