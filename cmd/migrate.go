package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()

		d, err := setup(ctx, false)
		if err != nil {
			d.logger.Fatal("opening storage", zap.Error(err))
		}
		defer d.close()

		if err := d.store.Migrate(ctx); err != nil {
			d.logger.Fatal("applying schema", zap.Error(err))
		}
		d.logger.Info("schema applied", zap.String("driver", d.config.Storage.Driver))
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
