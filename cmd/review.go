package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/talent-matcher/internal/store"
)

const (
	PromptShortlist = "Shortlist"
	PromptReject    = "Reject"
	PromptDetails   = "Show details"
	PromptBack      = "back"
)

var reviewCmd = &cobra.Command{
	Use:   "review <job-id>",
	Short: "Walk through a job's matches and shortlist or reject candidates",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		withService(func(ctx context.Context, d *deps) error {
			return review(ctx, d, args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func review(ctx context.Context, d *deps, jobID string) error {
	for {
		matches, err := d.service.ListMatchesForJob(ctx, jobID)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			d.logger.Info("exiting", zap.String("reason", "no matches above the threshold"))
			return nil
		}

		items := make([]string, 0, len(matches)+1)
		for _, m := range matches {
			items = append(items, matchLabel(ctx, d, m))
		}

		matchPrompt := promptui.Select{
			Label: "Choose a match and press ENTER",
			Items: append(items, PromptBack),
			Size:  15,
		}

		idx, selected, err := matchPrompt.Run()
		if err != nil {
			return err
		}
		if selected == PromptBack {
			return nil
		}

		if err := reviewMatch(ctx, d, matches[idx]); err != nil {
			return err
		}
	}
}

func reviewMatch(ctx context.Context, d *deps, m store.Match) error {
	for {
		actionPrompt := promptui.Select{
			Label: fmt.Sprintf("Match %s (score %d, %s)", m.ID, m.Score, m.Status),
			Items: []string{PromptShortlist, PromptReject, PromptDetails, PromptBack},
		}

		_, action, err := actionPrompt.Run()
		if err != nil {
			return err
		}

		switch action {
		case PromptShortlist:
			_, err = d.service.ShortlistMatch(ctx, m.ID)
			return err
		case PromptReject:
			_, err = d.service.RejectMatch(ctx, m.ID)
			return err
		case PromptDetails:
			current, err := d.service.GetMatch(ctx, m.ID)
			if err != nil {
				return err
			}
			if err := printJSON(current); err != nil {
				return err
			}
		case PromptBack:
			return nil
		default:
			return fmt.Errorf("invalid action: %s", action)
		}
	}
}

func matchLabel(ctx context.Context, d *deps, m store.Match) string {
	name := m.CandidateID
	if c, err := d.store.GetCandidate(ctx, m.CandidateID); err == nil && strings.TrimSpace(c.Name) != "" {
		name = c.Name
	}
	return fmt.Sprintf("%3d  %-24s %-12s %s", m.Score, name, m.Status, m.ID)
}
