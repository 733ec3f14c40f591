package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/notifoxhq/notifox/pkg/segment"
	"github.com/notifoxhq/notifox/pkg/tracker"
)

var sendCmd = &cobra.Command{
	Use:   "send [alert text]",
	Short: "Send an alert to a verified audience",
	Long: `Send an alert through the Notifox API and record it in the local ledger.
Arguments are joined with spaces; with no arguments the alert is read from stdin.`,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringP("audience", "a", "", "Audience to alert (default from config)")
	sendCmd.Flags().StringP("channel", "c", "", "Delivery channel: sms or email (default from config)")
	sendCmd.Flags().String("plan", "", "Rate plan for the local estimate")
	sendCmd.Flags().Bool("enforce-budget", false, "Refuse to send while a budget is exceeded")
	sendCmd.Flags().Bool("json", false, "Print the recorded alert as JSON")
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	audience, _ := cmd.Flags().GetString("audience")
	channel, _ := cmd.Flags().GetString("channel")
	plan, _ := cmd.Flags().GetString("plan")
	enforce, _ := cmd.Flags().GetBool("enforce-budget")
	asJSON, _ := cmd.Flags().GetBool("json")

	if audience == "" {
		audience = cfg.Defaults.Audience
	}
	if channel == "" {
		channel = cfg.Defaults.Channel
	}

	alert, err := alertText(cmd, args)
	if err != nil {
		return err
	}

	t, store, err := initTracker(cfg, NewLogger(cfg), true)
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := t.Send(cmd.Context(), tracker.SendRequest{
		Audience:      audience,
		Alert:         alert,
		Channel:       strings.ToLower(channel),
		Plan:          plan,
		EnforceBudget: enforce,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Record)
	}

	rec := res.Record
	fmt.Fprintf(out, "Alert sent:\n")
	fmt.Fprintf(out, "  Message ID:  %s\n", rec.MessageID)
	fmt.Fprintf(out, "  Audience:    %s\n", rec.Audience)
	fmt.Fprintf(out, "  Encoding:    %s\n", rec.Encoding)
	fmt.Fprintf(out, "  Characters:  %d\n", rec.Characters)
	fmt.Fprintf(out, "  Parts:       %d\n", rec.Parts)
	fmt.Fprintf(out, "  Cost:        %s %s\n", segment.FormatCost(rec.Cost), rec.Currency)
	if rec.Parts != res.Estimate.Parts {
		fmt.Fprintf(out, "  Estimated:   %d parts\n", res.Estimate.Parts)
	}

	return nil
}
