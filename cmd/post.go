package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/flameberry/PrimePatrol/clients"
	"github.com/flameberry/PrimePatrol/config"
	"github.com/flameberry/PrimePatrol/outbox"
	"github.com/flameberry/PrimePatrol/routes"
	"github.com/flameberry/PrimePatrol/services"
	"github.com/flameberry/PrimePatrol/storage"
	"github.com/flameberry/PrimePatrol/utils"
)

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Start the post service",
	Long:  "Serves reports, worker assignment and the activity ledger, and runs the notification outbox",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(config.ServicePost)
		if err != nil {
			return err
		}
		defer rt.close()
		cfg := rt.cfg

		db, err := config.InitDatabase(cfg, modelsFor(config.ServicePost)...)
		if err != nil {
			return err
		}
		store, err := storage.New(rt.ctx, cfg.Storage)
		if err != nil {
			return err
		}

		workers := clients.NewWorkerClient(cfg.Services.WorkerURL, cfg.Services.Timeout())
		users := clients.NewUserClient(cfg.Services.UserURL, cfg.Services.Timeout())

		opts := []services.PostServiceOption{
			services.WithCache(utils.NewCache(utils.NewRedis(cfg.Redis), cfg.Cache.TTL())),
		}
		var dispatcher *outbox.Dispatcher
		if cfg.Outbox.Enabled {
			opts = append(opts, services.WithOutbox(outbox.NewStore(db)))
			dispatcher = outbox.NewDispatcher(db, services.NewNotifier(workers, users).Deliver, cfg.Outbox)
			go dispatcher.Start(rt.ctx)
			outbox.StartCleaner(rt.ctx, db, time.Hour, time.Duration(cfg.Outbox.RetentionHours)*time.Hour)
		}
		posts := services.NewPostService(db, workers, users, store, opts...)

		var uploadsDir string
		if local, ok := store.(*storage.LocalStore); ok {
			uploadsDir = local.Dir()
		}

		err = rt.serve(routes.SetupPostRouter(cfg, posts, uploadsDir))
		rt.stop()
		if dispatcher != nil {
			dispatcher.Wait()
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(postCmd)
}
