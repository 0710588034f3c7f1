package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"go.pilab.hu/portal/domain"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show your policy overview",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(s *session) error {
			var (
				summary domain.DashboardSummary
				own     []domain.PolicySummary
			)
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() (err error) {
				summary, err = s.portal.Policies.DashboardSummary(ctx)
				return err
			})
			g.Go(func() (err error) {
				own, err = s.portal.Policies.ListOwn(ctx)
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}

			out := newPrinter()
			if outputFormat == formatYAML {
				return out.YAML(map[string]interface{}{"summary": summary, "policies": own})
			}
			if u := s.portal.State.Snapshot().Profile; u != nil {
				out.Heading("Welcome back, %s", u.FullName())
			}
			out.Table([]string{"Active policies", "Pending applications"}, [][]string{
				{strconv.Itoa(summary.ActivePolicies), strconv.Itoa(summary.PendingApplications)},
			})
			if len(own) > 0 {
				return printPolicySummaries(own)
			}
			return nil
		})
	},
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrator views",
}

var adminIssuanceCmd = &cobra.Command{
	Use:   "issuance",
	Short: "Show policies issued per day",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(s *session) error {
			stats, err := s.portal.Policies.IssuanceStats(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(stats.Data)+1)
			for _, p := range stats.Data {
				rows = append(rows, []string{p.Date, strconv.Itoa(p.PoliciesIssued)})
			}
			rows = append(rows, []string{"Total", strconv.Itoa(stats.Total())})
			return newPrinter().Result(stats, []string{"Date", "Policies issued"}, rows)
		})
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd, adminCmd)
	adminCmd.AddCommand(adminIssuanceCmd)
}
