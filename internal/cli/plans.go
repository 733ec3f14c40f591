package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/notifoxhq/notifox/pkg/segment"
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "Manage SMS rate plans",
}

var plansListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rate plans and their per-part prices",
	RunE:  runPlansList,
}

func init() {
	rootCmd.AddCommand(plansCmd)
	plansCmd.AddCommand(plansListCmd)
}

func runPlansList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	registry, err := initRegistry(cfg)
	if err != nil {
		return err
	}

	def, err := registry.Default()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "PLAN\tPER PART\tCURRENCY\tDEFAULT\n")
	for _, p := range registry.All() {
		mark := ""
		if p.Name == def.Name {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, segment.FormatCost(p.UnitPrice()), p.Currency(), mark)
	}
	return w.Flush()
}
