package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/talent-matcher/internal/api"
	"github.com/spigell/talent-matcher/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, and the scheduled rerun when enabled",
	Run: func(cmd *cobra.Command, _ []string) {
		migrate, _ := cmd.Flags().GetBool("migrate")
		serve(migrate)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().Bool("migrate", false, "apply the schema before serving")

	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func serve(migrate bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := setup(ctx, true)
	if err != nil {
		d.logger.Fatal("starting the service", zap.Error(err))
	}
	defer d.close()

	d.logger.Info("starting the talent-matcher", zap.String("version", version))

	if migrate {
		if err := d.store.Migrate(ctx); err != nil {
			d.logger.Fatal("applying schema", zap.Error(err))
		}
	}

	if cfg := d.config.Scheduler; cfg != nil && cfg.Enabled {
		sched := scheduler.New(d.service, cfg.Spec, d.logger.Named("scheduler"))
		if err := sched.Start(ctx); err != nil {
			d.logger.Fatal("starting scheduler", zap.Error(err))
		}
		defer sched.Stop()
	}

	server := api.New(d.service, version, d.logger.Named("api"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(d.config.Server.Addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			d.logger.Fatal("http server", zap.Error(err))
		}
	case <-ctx.Done():
		d.logger.Info("shutting down")
	}

	timeout := d.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if err := server.Shutdown(context.Background(), timeout); err != nil {
		d.logger.Warn("http server shutdown", zap.Error(err))
	}

	d.logger.Info("waiting for bulk jobs to finish")
	d.service.Wait()
}
