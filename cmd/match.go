package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var matchCmd = &cobra.Command{
	Use:   "match <candidate-id> <job-id>",
	Short: "Calculate and store the match of one candidate for one job",
	Args:  cobra.ExactArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		calculate(args[0], args[1])
	},
}

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Regenerate skill and requirement matrices with the extraction model",
}

var matrixCandidateCmd = &cobra.Command{
	Use:   "candidate <candidate-id>",
	Short: "Regenerate the candidate's matrix from the latest CV",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		withService(func(ctx context.Context, d *deps) error {
			c, err := d.service.RegenerateCandidateMatrix(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(c)
		})
	},
}

var matrixJobCmd = &cobra.Command{
	Use:   "job <job-id>",
	Short: "Regenerate the job's requirement matrix from the posting",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		withService(func(ctx context.Context, d *deps) error {
			j, err := d.service.RegenerateJobMatrix(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(j)
		})
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(matrixCmd)
	matrixCmd.AddCommand(matrixCandidateCmd, matrixJobCmd)
}

func calculate(candidateID, jobID string) {
	withService(func(ctx context.Context, d *deps) error {
		outcome, err := d.service.CalculateMatch(ctx, candidateID, jobID)
		if err != nil {
			return err
		}

		switch {
		case outcome.Skipped():
			d.logger.Info("pair is not eligible",
				zap.String("rule", outcome.Verdict.Rule),
				zap.String("reason", outcome.Verdict.Reason),
			)
			return nil
		case outcome.Match == nil:
			d.logger.Info("score is under the threshold, nothing stored",
				zap.Int("score", outcome.Score),
				zap.Int("min_score", d.service.MinScore()),
			)
			return nil
		case outcome.ExplainError != nil:
			d.logger.Warn("match stored without explanation", zap.Error(outcome.ExplainError))
		}

		return printJSON(outcome.Match)
	})
}

// withService runs fn with a ready matching service and exits on error.
func withService(fn func(ctx context.Context, d *deps) error) {
	ctx := context.Background()

	d, err := setup(ctx, true)
	if err != nil {
		d.logger.Fatal("preparing the service", zap.Error(err))
	}
	defer d.close()

	if err := fn(ctx, d); err != nil {
		d.logger.Fatal("exiting", zap.Error(err))
	}
}

func printJSON(v any) error {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(pretty))
	return nil
}
