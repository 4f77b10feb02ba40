package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flameberry/PrimePatrol/config"
	"github.com/flameberry/PrimePatrol/utils"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate <post|worker|user>",
	Short:     "Create or update the tables a service owns",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{config.ServicePost, config.ServiceWorker, config.ServiceUser},
	RunE: func(cmd *cobra.Command, args []string) error {
		service := args[0]
		defs := modelsFor(service)
		if defs == nil {
			return fmt.Errorf("unknown service %q", service)
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := utils.InitLogger(cfg.Log, service); err != nil {
			return err
		}
		cfg.Database.AutoMigrate = true
		if _, err := config.InitDatabase(cfg, defs...); err != nil {
			return err
		}
		utils.Sugar.Infof("migrated %d tables for the %s service", len(defs), service)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
