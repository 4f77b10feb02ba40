package cmd

import (
	"github.com/spf13/cobra"

	"github.com/flameberry/PrimePatrol/config"
	"github.com/flameberry/PrimePatrol/routes"
	"github.com/flameberry/PrimePatrol/services"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Start the user service",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(config.ServiceUser)
		if err != nil {
			return err
		}
		defer rt.close()

		db, err := config.InitDatabase(rt.cfg, modelsFor(config.ServiceUser)...)
		if err != nil {
			return err
		}
		users := services.NewUserService(db, rt.cfg.Auth.JWTSecret, rt.cfg.Auth.TokenTTL())
		return rt.serve(routes.SetupUserRouter(rt.cfg, users))
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
}
