package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/talent-matcher/internal/logger"
	"github.com/spigell/talent-matcher/internal/matrix"
	"github.com/spigell/talent-matcher/internal/store"
)

// importFile is the layout of the file read by the import command.
type importFile struct {
	Candidates []store.Candidate `json:"candidates"`
	CVs        []struct {
		CandidateID string    `json:"candidateId"`
		Text        string    `json:"text"`
		UploadedAt  time.Time `json:"uploadedAt"`
	} `json:"cvs"`
	Jobs []store.Job `json:"jobs"`
}

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Load candidates, CVs and jobs from a JSON file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		extract, _ := cmd.Flags().GetBool("extract")
		withService(func(ctx context.Context, d *deps) error {
			return importData(ctx, d, args[0], extract)
		})
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().Bool("extract", false, "generate matrices for imported records that have none")
}

func importData(ctx context.Context, d *deps, path string, extract bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}

	var in importFile
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("parse import file: %w", err)
	}

	for _, c := range in.Candidates {
		if err := d.store.PutCandidate(ctx, c); err != nil {
			return fmt.Errorf("candidate %s: %w", c.ID, err)
		}
	}
	for _, cv := range in.CVs {
		at := cv.UploadedAt
		if at.IsZero() {
			at = time.Now()
		}
		if err := d.store.AddCV(ctx, cv.CandidateID, cv.Text, at); err != nil {
			return fmt.Errorf("cv of candidate %s: %w", cv.CandidateID, err)
		}
	}
	for i, j := range in.Jobs {
		if j.Seniority, err = matrix.ParseSeniority(j.Seniority); err != nil {
			return fmt.Errorf("job %s: %w", j.ID, err)
		}
		if j.LocationType, err = matrix.ParseLocationType(j.LocationType); err != nil {
			return fmt.Errorf("job %s: %w", j.ID, err)
		}
		in.Jobs[i] = j
		if err := d.store.PutJob(ctx, j); err != nil {
			return fmt.Errorf("job %s: %w", j.ID, err)
		}
	}

	d.logger.Info("import finished",
		zap.Int("candidates", len(in.Candidates)),
		zap.Int("cvs", len(in.CVs)),
		zap.Int("jobs", len(in.Jobs)),
	)

	if !extract {
		return nil
	}

	for _, j := range in.Jobs {
		if j.Matrix != nil {
			continue
		}
		if _, err := d.service.RegenerateJobMatrix(ctx, j.ID); err != nil {
			d.logger.Warn("job matrix extraction failed", zap.String(logger.FieldJobID, j.ID), zap.Error(err))
		}
	}
	for _, c := range in.Candidates {
		if c.Matrix != nil {
			continue
		}
		if _, err := d.service.RegenerateCandidateMatrix(ctx, c.ID); err != nil {
			d.logger.Warn("candidate matrix extraction failed", zap.String(logger.FieldCandidateID, c.ID), zap.Error(err))
		}
	}
	return nil
}
