package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go.pilab.hu/portal/domain"
)

var policiesCmd = &cobra.Command{
	Use:     "policies",
	Short:   "Review your issued policies",
	Aliases: []string{"policy"},
}

var policiesListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List your policies",
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(s *session) error {
			own, err := s.portal.Policies.ListOwn(cmd.Context())
			if err != nil {
				return err
			}
			if len(own) == 0 && outputFormat == formatTable {
				newPrinter().Info("You have no policies yet.")
				return nil
			}
			return printPolicySummaries(own)
		})
	},
}

var policiesShowCmd = &cobra.Command{
	Use:   "show USER_POLICY_ID",
	Short: "Show a policy with its payment schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(s *session) error {
			view, err := s.portal.Viewer.Open(cmd.Context(), args[0])
			defer s.portal.Viewer.Close()
			if err != nil {
				return err
			}
			if view.Detail.PaymentsErr != nil {
				newPrinter().Warn("Payment schedule unavailable: %s", message(view.Detail.PaymentsErr))
			}
			return printIssued(view.Detail.Issued())
		})
	},
}

var policiesDownloadCmd = &cobra.Command{
	Use:   "download USER_POLICY_ID",
	Short: "Download the policy document as PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		if path == "" {
			path = args[0] + ".pdf"
		}
		return withSession(cmd.Context(), func(s *session) error {
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create %s: %w", path, err)
			}
			if err := s.portal.Policies.Download(cmd.Context(), args[0], f); err != nil {
				_ = f.Close()
				_ = os.Remove(path)
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			newPrinter().Success("Saved %s.", path)
			return nil
		})
	},
}

func printPolicySummaries(own []domain.PolicySummary) error {
	rows := make([][]string, 0, len(own))
	for _, p := range own {
		rows = append(rows, []string{p.UserPolicyID, p.Name, string(p.Type), string(p.Status), p.CoverageAmount.String()})
	}
	return newPrinter().Result(own, []string{"ID", "Name", "Type", "Status", "Coverage"}, rows)
}

func init() {
	rootCmd.AddCommand(policiesCmd)
	policiesCmd.AddCommand(policiesListCmd, policiesShowCmd, policiesDownloadCmd)

	policiesDownloadCmd.Flags().StringP("file", "f", "", "output file (default USER_POLICY_ID.pdf)")
}
