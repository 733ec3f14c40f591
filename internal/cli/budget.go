package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/notifoxhq/notifox/pkg/segment"
	"github.com/notifoxhq/notifox/pkg/tracker"
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Manage spending budgets",
}

var budgetSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or update a budget",
	RunE:  runBudgetSet,
}

var budgetStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current budget status",
	RunE:  runBudgetStatus,
}

var budgetResetCmd = &cobra.Command{
	Use:   "reset <name>",
	Short: "Reset the current spend of a budget to zero",
	Args:  cobra.ExactArgs(1),
	RunE:  runBudgetReset,
}

func init() {
	rootCmd.AddCommand(budgetCmd)
	budgetCmd.AddCommand(budgetSetCmd)
	budgetCmd.AddCommand(budgetStatusCmd)
	budgetCmd.AddCommand(budgetResetCmd)

	budgetSetCmd.Flags().StringP("name", "n", "default", "Budget name")
	budgetSetCmd.Flags().StringP("limit", "l", "", "Spending limit, e.g. 25.00")
	budgetSetCmd.Flags().String("currency", "", "Budget currency (default: pricing currency)")
	budgetSetCmd.Flags().StringP("period", "P", "monthly", "Budget period (daily, weekly, monthly)")
	budgetSetCmd.Flags().Float64("alert-at", 80, "Alert threshold percentage")
	_ = budgetSetCmd.MarkFlagRequired("limit")
}

func runBudgetSet(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("name")
	limitStr, _ := cmd.Flags().GetString("limit")
	currency, _ := cmd.Flags().GetString("currency")
	period, _ := cmd.Flags().GetString("period")
	alertAt, _ := cmd.Flags().GetFloat64("alert-at")

	limit, err := decimal.NewFromString(limitStr)
	if err != nil || !limit.IsPositive() {
		return fmt.Errorf("invalid limit %q: must be a positive amount", limitStr)
	}
	if !tracker.ValidPeriod(tracker.BudgetPeriod(period)) {
		return fmt.Errorf("invalid period %q: use daily, weekly or monthly", period)
	}
	if alertAt <= 0 || alertAt > 100 {
		return fmt.Errorf("invalid alert threshold %.1f: must be in (0, 100]", alertAt)
	}
	if currency == "" {
		currency = cfg.Pricing.Currency
	}

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	budget := &tracker.Budget{
		Name:              name,
		Limit:             limit,
		Currency:          strings.ToUpper(currency),
		Period:            tracker.BudgetPeriod(period),
		AlertThresholdPct: alertAt,
	}

	if err := store.SetBudget(cmd.Context(), budget); err != nil {
		return fmt.Errorf("set budget: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Budget set:\n")
	fmt.Fprintf(out, "  Name:      %s\n", name)
	fmt.Fprintf(out, "  Limit:     %s %s\n", limit.StringFixed(2), budget.Currency)
	fmt.Fprintf(out, "  Period:    %s\n", period)
	fmt.Fprintf(out, "  Alert at:  %.0f%%\n", alertAt)

	return nil
}

func runBudgetStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	budgets, err := store.ListBudgets(cmd.Context())
	if err != nil {
		return fmt.Errorf("list budgets: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(budgets) == 0 {
		fmt.Fprintln(out, "No budgets configured. Use 'notifox budget set' to create one.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "NAME\tPERIOD\tLIMIT\tSPENT\tREMAINING\tUSAGE\tALERT AT\n")
	for _, b := range budgets {
		status := ""
		if level, ok := tracker.Level(&b); ok {
			status = " [" + strings.ToUpper(string(level)) + "]"
		}

		fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\t%s\t%.1f%%%s\t%.0f%%\n",
			b.Name, b.Period,
			b.Limit.StringFixed(2), b.Currency,
			segment.FormatCost(b.CurrentSpend),
			segment.FormatCost(b.Remaining()),
			b.UsagePct(), status, b.AlertThresholdPct,
		)
	}
	return w.Flush()
}

func runBudgetReset(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	mgr := tracker.NewBudgetManager(store, nil, NewLogger(cfg))
	if err := mgr.ResetBudgetSpend(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("reset budget: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Budget %s reset.\n", args[0])
	return nil
}
