package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/notifoxhq/notifox/pkg/segment"
	"github.com/notifoxhq/notifox/pkg/tracker"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate alert usage and cost reports",
	Long:  `Generate aggregated reports of sent alerts by audience, encoding and time period.`,
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringP("period", "P", "daily", "Report period (daily, weekly, monthly)")
	reportCmd.Flags().StringP("audience", "a", "", "Filter by audience")
	reportCmd.Flags().StringP("channel", "c", "", "Filter by channel")
	reportCmd.Flags().StringP("encoding", "e", "", "Filter by encoding (GSM-7, UCS-2)")
	reportCmd.Flags().String("status", "", "Filter by status (sent, failed)")
	reportCmd.Flags().Bool("detailed", false, "Show individual records")
	reportCmd.Flags().Bool("json", false, "Print the summary as JSON")
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	period, _ := cmd.Flags().GetString("period")
	audience, _ := cmd.Flags().GetString("audience")
	channel, _ := cmd.Flags().GetString("channel")
	encoding, _ := cmd.Flags().GetString("encoding")
	status, _ := cmd.Flags().GetString("status")
	detailed, _ := cmd.Flags().GetBool("detailed")
	asJSON, _ := cmd.Flags().GetBool("json")

	budgetPeriod := tracker.BudgetPeriod(period)
	if !tracker.ValidPeriod(budgetPeriod) {
		return fmt.Errorf("invalid period %q: use daily, weekly or monthly", period)
	}

	t, store, err := initTracker(cfg, NewLogger(cfg), false)
	if err != nil {
		return err
	}
	defer store.Close()

	start, end := tracker.PeriodBounds(budgetPeriod)
	filter := tracker.ReportFilter{
		Audience:  audience,
		Channel:   channel,
		Encoding:  encoding,
		Status:    tracker.AlertStatus(status),
		StartTime: start,
		EndTime:   end,
	}

	summary, err := t.Report(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Fprintf(out, "=== Notifox Alert Report (%s) ===\n", period)
	fmt.Fprintf(out, "Period: %s to %s\n\n", start.Format("2006-01-02"), end.Format("2006-01-02"))
	fmt.Fprintf(out, "Total Cost:        %s %s\n", segment.FormatCost(summary.TotalCost), summary.Currency)
	fmt.Fprintf(out, "Total Parts:       %d\n", summary.TotalParts)
	fmt.Fprintf(out, "Total Characters:  %d\n", summary.TotalCharacters)
	fmt.Fprintf(out, "Total Alerts:      %d\n", summary.RecordCount)
	fmt.Fprintf(out, "Failed Alerts:     %d\n", summary.FailedCount)

	if len(summary.ByAudience) > 0 {
		fmt.Fprintf(out, "\nBy Audience:\n")
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "  AUDIENCE\tCOST\n")
		for _, name := range sortedKeys(summary.ByAudience) {
			fmt.Fprintf(w, "  %s\t%s\n", name, segment.FormatCost(summary.ByAudience[name]))
		}
		w.Flush()
	}

	if len(summary.ByEncoding) > 0 {
		fmt.Fprintf(out, "\nBy Encoding:\n")
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "  ENCODING\tPARTS\n")
		for _, name := range sortedKeys(summary.ByEncoding) {
			fmt.Fprintf(w, "  %s\t%d\n", name, summary.ByEncoding[name])
		}
		w.Flush()
	}

	if detailed {
		records, err := t.Query(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("query records: %w", err)
		}

		if len(records) > 0 {
			fmt.Fprintf(out, "\nDetailed Records:\n")
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "  TIMESTAMP\tAUDIENCE\tSTATUS\tENCODING\tCHARS\tPARTS\tCOST\n")
			for _, r := range records {
				fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%d\t%d\t%s %s\n",
					r.Timestamp.Format("2006-01-02 15:04"),
					r.Audience, r.Status, r.Encoding,
					r.Characters, r.Parts,
					segment.FormatCost(r.Cost), r.Currency,
				)
			}
			w.Flush()
		}
	}

	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
