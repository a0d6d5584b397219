package cmd

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/talent-matcher/internal/bulk"
	"github.com/spigell/talent-matcher/internal/logger"
)

const progressInterval = 5 * time.Second

var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Run and inspect bulk matrix regeneration and matching jobs",
}

var bulkStartCmd = &cobra.Command{
	Use:   "start <type>",
	Short: "Run a bulk job in this process and wait for it to finish",
	Long: "Run a bulk job in this process and wait for it to finish.\n" +
		"Types: regenerate-matrices, rerun-matching, regenerate-and-match, job-matching.",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		candidates, _ := cmd.Flags().GetStringSlice("candidates")
		jobs, _ := cmd.Flags().GetStringSlice("jobs")
		onlyMissing, _ := cmd.Flags().GetBool("only-missing")

		kind, err := bulk.ParseType(strings.TrimSpace(args[0]))
		if err != nil {
			newLogger().Fatal("parsing bulk job type", zap.Error(err))
		}

		runBulk(bulk.Request{
			Type:         kind,
			CandidateIDs: candidates,
			JobIDs:       jobs,
			OnlyMissing:  onlyMissing,
		})
	},
}

var bulkStatusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Print a bulk job status record (redis status store only)",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		withService(func(ctx context.Context, d *deps) error {
			warnMemoryStore(d)
			job, err := d.service.BulkJobStatus(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(job)
		})
	},
}

var bulkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bulk jobs, newest first (redis status store only)",
	Run: func(_ *cobra.Command, _ []string) {
		withService(func(ctx context.Context, d *deps) error {
			warnMemoryStore(d)
			jobs, err := d.service.ListBulkJobs(ctx)
			if err != nil {
				return err
			}
			return printJSON(jobs)
		})
	},
}

var bulkCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Request cancellation of a running bulk job (redis status store only)",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		withService(func(ctx context.Context, d *deps) error {
			warnMemoryStore(d)
			job, err := d.service.CancelBulkJob(ctx, args[0])
			if err != nil {
				return err
			}
			d.logger.Info("cancellation recorded",
				zap.String(logger.FieldBulkJobID, job.ID),
				zap.String("status", string(job.Status)),
			)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(bulkCmd)
	bulkCmd.AddCommand(bulkStartCmd, bulkStatusCmd, bulkListCmd, bulkCancelCmd)

	bulkStartCmd.Flags().StringSlice("candidates", nil, "candidate ids to include (default all)")
	bulkStartCmd.Flags().StringSlice("jobs", nil, "job ids to include (default all published)")
	bulkStartCmd.Flags().Bool("only-missing", false, "regenerate only candidates without a matrix")
}

func runBulk(req bulk.Request) {
	withService(func(ctx context.Context, d *deps) error {
		job, err := d.service.StartBulkJob(ctx, req)
		if err != nil {
			return err
		}

		log := logger.WithBulkJob(d.logger, job.ID, string(job.Type))
		log.Info("bulk job started")

		done := make(chan struct{})
		go func() {
			d.service.Wait()
			close(done)
		}()

		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				final, err := d.service.BulkJobStatus(ctx, job.ID)
				if err != nil {
					return err
				}
				return printJSON(final)
			case <-ticker.C:
				current, err := d.service.BulkJobStatus(ctx, job.ID)
				if err != nil {
					log.Warn("reading progress", zap.Error(err))
					continue
				}
				log.Info("bulk job progress",
					zap.Int("processed", current.Processed),
					zap.Int("total", current.Total),
					zap.Int("failed", current.Failed),
					zap.String("current_item", current.CurrentItem),
				)
			}
		}
	})
}

func warnMemoryStore(d *deps) {
	if storeKind(d.config) != "redis" {
		d.logger.Warn("bulk status store is in memory; only jobs of this process are visible",
			zap.String("hint", "set bulk.status-store to redis to share status between processes"),
		)
	}
}
