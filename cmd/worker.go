package cmd

import (
	"github.com/spf13/cobra"

	"github.com/flameberry/PrimePatrol/config"
	"github.com/flameberry/PrimePatrol/routes"
	"github.com/flameberry/PrimePatrol/services"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the worker service",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(config.ServiceWorker)
		if err != nil {
			return err
		}
		defer rt.close()

		db, err := config.InitDatabase(rt.cfg, modelsFor(config.ServiceWorker)...)
		if err != nil {
			return err
		}
		return rt.serve(routes.SetupWorkerRouter(rt.cfg, services.NewWorkerService(db)))
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
