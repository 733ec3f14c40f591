package cli

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/notifoxhq/notifox/pkg/segment"
	"github.com/notifoxhq/notifox/pkg/tracker"
)

var partsCmd = &cobra.Command{
	Use:   "parts [alert text]",
	Short: "Estimate SMS parts and cost for an alert",
	Long: `Estimate how an alert will be billed without sending it: the prefixed
message, its encoding (GSM-7 or UCS-2), its length in encoding units, the
number of SMS parts and the cost under a rate plan. Nothing touches the network.`,
	RunE: runParts,
}

func init() {
	rootCmd.AddCommand(partsCmd)
	partsCmd.Flags().String("plan", "", "Rate plan (default from config)")
	partsCmd.Flags().Bool("json", false, "Print the estimate as JSON")
	partsCmd.Flags().Bool("payload", false, "Also print the encoded payload as hex")
}

func runParts(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	plan, _ := cmd.Flags().GetString("plan")
	asJSON, _ := cmd.Flags().GetBool("json")
	withPayload, _ := cmd.Flags().GetBool("payload")

	alert, err := alertText(cmd, args)
	if err != nil {
		return err
	}

	registry, err := initRegistry(cfg)
	if err != nil {
		return err
	}

	r, err := tracker.NewCostCalculator(registry).Calculate(plan, alert)
	if err != nil {
		return err
	}

	var payload string
	if withPayload {
		b, err := segment.Encode(r.Message, r.Encoding)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		payload = hex.EncodeToString(b)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if !withPayload {
			return enc.Encode(r)
		}
		return enc.Encode(partsOutput{
			Parts:      r.Parts,
			Cost:       json.Number(segment.FormatCost(r.Cost)),
			Currency:   r.Currency,
			Encoding:   r.Encoding,
			Characters: r.Characters,
			Message:    r.Message,
			Payload:    payload,
		})
	}

	fmt.Fprintf(out, "Message:     %q\n", r.Message)
	fmt.Fprintf(out, "Encoding:    %s\n", r.Encoding)
	fmt.Fprintf(out, "Characters:  %d\n", r.Characters)
	fmt.Fprintf(out, "Parts:       %d\n", r.Parts)
	fmt.Fprintf(out, "Cost:        %s %s\n", segment.FormatCost(r.Cost), r.Currency)
	if withPayload {
		fmt.Fprintf(out, "Payload:     %s\n", payload)
	}

	return nil
}

// partsOutput is segment.Result plus the hex payload. Result has its own
// MarshalJSON, so embedding it would drop the extra field.
type partsOutput struct {
	Parts      int              `json:"parts"`
	Cost       json.Number      `json:"cost"`
	Currency   string           `json:"currency"`
	Encoding   segment.Encoding `json:"encoding"`
	Characters int              `json:"characters"`
	Message    string           `json:"message"`
	Payload    string           `json:"payload"`
}

// alertText joins args, or reads stdin when there are none. A single
// trailing newline from stdin is dropped.
func alertText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read alert from stdin: %w", err)
	}
	text := strings.TrimSuffix(string(data), "\n")
	return strings.TrimSuffix(text, "\r"), nil
}
