package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var triggersCmd = &cobra.Command{
	Use:   "triggers",
	Short: "Inspect and control schedule triggers",
}

var triggersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List schedule trigger states",
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		client := NewFlowClient(viper.GetString("url"), viper.GetString("tenant"))
		triggers, err := client.ListTriggers(limit, offset)
		if err != nil {
			printAPIError(cmd, err)
			return
		}

		if len(triggers) == 0 {
			cmd.Println("No triggers found")
			return
		}
		for _, t := range triggers {
			next := "-"
			if t.NextDate != nil {
				next = t.NextDate.Format("2006-01-02T15:04:05Z07:00")
			}
			status := ""
			if t.Disabled {
				status = " disabled"
			}
			if t.Backfill != nil {
				status += " backfilling"
			}
			cmd.Printf("%s/%s/%s next=%s%s\n", t.Namespace, t.FlowID, t.TriggerID, next, status)
		}
	},
}

func setTriggerDisabledCmd(use, short string, disabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			client := NewFlowClient(viper.GetString("url"), viper.GetString("tenant"))
			if err := client.SetTriggerDisabled(args[0], args[1], args[2], disabled); err != nil {
				printAPIError(cmd, err)
				return
			}
			if disabled {
				cmd.Println("✓ Trigger disabled")
			} else {
				cmd.Println("✓ Trigger enabled")
			}
		},
	}
}

func init() {
	triggersListCmd.Flags().Int("limit", 100, "Maximum number of triggers to return")
	triggersListCmd.Flags().Int("offset", 0, "Number of triggers to skip")

	triggersCmd.AddCommand(triggersListCmd)
	triggersCmd.AddCommand(setTriggerDisabledCmd("disable [namespace] [flow] [trigger]", "Stop evaluating a trigger", true))
	triggersCmd.AddCommand(setTriggerDisabledCmd("enable [namespace] [flow] [trigger]", "Resume evaluating a trigger", false))
	rootCmd.AddCommand(triggersCmd)
}
