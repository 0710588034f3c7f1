package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"go.pilab.hu/portal/domain"
	"go.pilab.hu/portal/upload"
	"go.pilab.hu/portal/wizard"
)

var catalogCmd = &cobra.Command{
	Use:       "catalog CATEGORY",
	Short:     "List the policies offered in a category (auto, life or home)",
	Args:      cobra.ExactArgs(1),
	ValidArgs: categoryArgs(),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, err := domain.ParseCategory(args[0])
		if err != nil {
			return err
		}
		return withSession(cmd.Context(), func(s *session) error {
			policies, err := s.portal.Catalog.PoliciesByCategory(cmd.Context(), category)
			if err != nil {
				return err
			}
			return printCatalog(policies)
		})
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply CATEGORY",
	Short: "Get a quotation and optionally buy a policy",
	Long: `Walks the application wizard: picks a policy from the category's catalog,
submits the underwriting answers, prints the quotation, uploads a supporting
document and pays when --pay is given.

Examples:
  portalctl apply home --policy pol-home-shield --property-type Landed --rooms 3
  portalctl apply auto --policy pol-auto-basic --vehicle car --natural-disaster --document id.pdf --pay
  portalctl apply life --policy pol-life-care --age 35 --health Good --pay --yes`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: categoryArgs(),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, err := domain.ParseCategory(args[0])
		if err != nil {
			return err
		}
		return withSession(cmd.Context(), func(s *session) error {
			return runApplication(cmd, s, category)
		})
	},
}

func runApplication(cmd *cobra.Command, s *session, category domain.Category) error {
	ctx := cmd.Context()
	out := newPrinter()
	w := s.portal.Wizard
	defer w.Abandon()

	if _, err := w.SelectCategory(ctx, category); err != nil {
		return err
	}
	policies, err := w.AwaitCatalog(ctx)
	if err != nil {
		return err
	}

	policyID, _ := cmd.Flags().GetString("policy")
	if policyID == "" {
		if err := printCatalog(policies); err != nil {
			return err
		}
		return fmt.Errorf("choose a policy with --policy")
	}
	run, err := w.SelectPolicy(policyID)
	if err != nil {
		return err
	}

	p := run.Policy
	out.Heading("%s (%s)", p.Name, p.Type)
	out.Table([]string{"Coverage", "Premium / month", "Term"}, [][]string{
		{p.CoverageAmount.String(), p.PremiumPerMonth.String(), fmt.Sprintf("%d months", p.TermLengthInMonths)},
	})
	if _, err := w.ConfirmCoverage(); err != nil {
		return err
	}

	form, ok := w.Content().(wizard.UnderwritingForm)
	if !ok {
		return fmt.Errorf("unexpected wizard step %s", w.Snapshot().Step())
	}
	answers, err := answersFromFlags(cmd, form)
	if err != nil {
		return err
	}
	if _, err := w.SubmitUnderwriting(answers); err != nil {
		return err
	}

	out.Info("Requesting quotation...")
	q, err := w.RequestQuote(ctx)
	if err != nil {
		return err
	}
	if err := printQuotation(q); err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("document"); path != "" {
		f, closer, err := upload.Open(path)
		if err != nil {
			return err
		}
		err = w.Upload(ctx, f)
		_ = closer.Close()
		if err != nil {
			return err
		}
		out.Success("Uploaded %s.", f.Name)
	}

	pay, _ := cmd.Flags().GetBool("pay")
	if !pay {
		out.Info("Quotation %s was not purchased. Run again with --pay to buy it.", q.QuoteID)
		return nil
	}
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes && !confirm(fmt.Sprintf("Pay %s per month for %s?", q.PremiumPerMonth, q.Policy.Name)) {
		out.Info("Payment cancelled.")
		return nil
	}

	issued, err := w.Pay(ctx)
	if err != nil {
		return err
	}
	out.Success("Policy %s issued.", issued.UserPolicyID)
	return printIssued(issued)
}

// answersFromFlags builds the category's answers from the fields the
// wizard asks for. Validation happens in the wizard.
func answersFromFlags(cmd *cobra.Command, form wizard.UnderwritingForm) (domain.Answers, error) {
	f := cmd.Flags()
	switch form.Category {
	case domain.CategoryAuto:
		vehicle, _ := f.GetString("vehicle")
		driver, _ := f.GetBool("additional-driver")
		disaster, _ := f.GetBool("natural-disaster")
		return domain.AutoAnswers{VehicleType: vehicle, AdditionalDriver: driver, NaturalDisasterCoverage: disaster}, nil
	case domain.CategoryHome:
		property, _ := f.GetString("property-type")
		rooms, _ := f.GetInt("rooms")
		return domain.HomeAnswers{PropertyType: property, NumberOfRooms: rooms}, nil
	case domain.CategoryLife:
		age, _ := f.GetInt("age")
		health, _ := f.GetString("health")
		return domain.LifeAnswers{Age: age, HealthStatus: health}, nil
	}
	return nil, fmt.Errorf("no underwriting form for %s", form.Category)
}

func printCatalog(policies []domain.InsurancePolicy) error {
	rows := make([][]string, 0, len(policies))
	for _, p := range policies {
		rows = append(rows, []string{
			p.ID, p.Name, string(p.Type), p.CoverageAmount.String(), p.PremiumPerMonth.String(),
			strconv.Itoa(p.TermLengthInMonths),
		})
	}
	return newPrinter().Result(policies, []string{"ID", "Name", "Type", "Coverage", "Premium", "Months"}, rows)
}

func printQuotation(q *domain.Quotation) error {
	out := newPrinter()
	if outputFormat == formatYAML {
		return out.YAML(q)
	}
	out.Heading("Quotation %s for %s", q.QuoteID, q.Policy.Name)
	rows := make([][]string, 0, len(q.Breakdown.Components)+1)
	for _, c := range q.Breakdown.Components {
		rows = append(rows, []string{c.Description, c.Amount.String()})
	}
	rows = append(rows, []string{"Total per month", q.Breakdown.Total.String()})
	out.Table([]string{"Item", "Amount"}, rows)
	return nil
}

func printIssued(ip domain.IssuedPolicy) error {
	out := newPrinter()
	if outputFormat == formatYAML {
		return out.YAML(ip)
	}
	if ip.Name == "" {
		out.Warn("Policy details are not available yet. Try '%s policies show %s' later.", rootCmd.Name(), ip.UserPolicyID)
		return nil
	}
	out.Heading("%s (%s), %s", ip.Name, ip.Type, ip.Status)
	out.Table([]string{"Coverage", "Premium / month"}, [][]string{
		{ip.CoverageAmount.String(), ip.MonthlyPremiumAmount.String()},
	})
	printSchedule(out, ip.PaymentSchedule)
	return nil
}

func printSchedule(out *printer, schedule []domain.ScheduleEntry) {
	rows := make([][]string, 0, len(schedule))
	for _, e := range schedule {
		due, paid := "-", "-"
		if e.DueDate != nil {
			due = e.DueDate.Format("2006-01-02")
		}
		if e.PaidDate != nil {
			paid = e.PaidDate.Format("2006-01-02")
		}
		rows = append(rows, []string{strconv.Itoa(e.Month), e.Amount.String(), due, paid, string(e.Status)})
	}
	out.Table([]string{"Month", "Amount", "Due", "Paid", "Status"}, rows)
}

func categoryArgs() []string {
	out := make([]string, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		out = append(out, string(c))
	}
	return out
}

func init() {
	rootCmd.AddCommand(catalogCmd, applyCmd)

	f := applyCmd.Flags()
	f.String("policy", "", "catalog policy id")
	f.String("vehicle", "", "auto: vehicle type (car or motor)")
	f.Bool("additional-driver", false, "auto: include an additional driver")
	f.Bool("natural-disaster", false, "auto: add natural disaster coverage")
	f.String("property-type", "", "home: property type (Apartment or Landed)")
	f.Int("rooms", 0, "home: number of rooms")
	f.Int("age", 0, "life: age of the insured")
	f.String("health", "", "life: health status (Excellent, Good or Poor)")
	f.String("document", "", "PDF to upload as a supporting document")
	f.Bool("pay", false, "pay the quotation and issue the policy")
	f.BoolP("yes", "y", false, "do not ask for payment confirmation")
}
