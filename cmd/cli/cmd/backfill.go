package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"flowplane/pkg/api"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Replay historical schedule fires",
}

var backfillCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Start a backfill over a date range",
	Long: `Start a backfill that replays every scheduled fire between start and end.
Live evaluation pauses for the trigger until the backfill completes.

Example:
  flowctl backfill create --namespace company.team --flow daily-report \
    --trigger schedule --start 2026-01-01T00:00:00Z --end 2026-01-07T00:00:00Z`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		namespace, _ := flags.GetString("namespace")
		flowID, _ := flags.GetString("flow")
		triggerID, _ := flags.GetString("trigger")
		startStr, _ := flags.GetString("start")
		endStr, _ := flags.GetString("end")

		if namespace == "" || flowID == "" || triggerID == "" {
			cmd.Println("Error: --namespace, --flow and --trigger are required")
			return
		}

		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			cmd.Printf("Error: invalid --start: %v\n", err)
			return
		}
		end, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			cmd.Printf("Error: invalid --end: %v\n", err)
			return
		}

		client := NewFlowClient(viper.GetString("url"), viper.GetString("tenant"))
		state, err := client.CreateBackfill(api.CreateBackfillRequest{
			Namespace: namespace,
			FlowID:    flowID,
			TriggerID: triggerID,
			Start:     start,
			End:       end,
		})
		if err != nil {
			printAPIError(cmd, err)
			return
		}

		cmd.Printf("✓ Backfill started!\nTrigger: %s/%s/%s\nFrom: %s\nTo: %s\n",
			state.Namespace, state.FlowID, state.TriggerID,
			state.Backfill.Start.Format(time.RFC3339), state.Backfill.End.Format(time.RFC3339))
	},
}

func backfillPauseCmd(use, short string, paused bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			client := NewFlowClient(viper.GetString("url"), viper.GetString("tenant"))
			_, err := client.SetBackfillPaused(args[0], args[1], args[2], paused)
			if err != nil {
				printAPIError(cmd, err)
				return
			}
			if paused {
				cmd.Println("✓ Backfill paused")
			} else {
				cmd.Println("✓ Backfill resumed")
			}
		},
	}
}

var backfillDeleteCmd = &cobra.Command{
	Use:   "delete [namespace] [flow] [trigger]",
	Short: "Cancel a backfill and resume live evaluation",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewFlowClient(viper.GetString("url"), viper.GetString("tenant"))
		_, err := client.DeleteBackfill(args[0], args[1], args[2])
		if err != nil {
			printAPIError(cmd, err)
			return
		}
		cmd.Println("✓ Backfill deleted")
	},
}

func init() {
	flags := backfillCreateCmd.Flags()
	flags.String("namespace", "", "Flow namespace (required)")
	flags.String("flow", "", "Flow ID (required)")
	flags.String("trigger", "", "Trigger ID (required)")
	flags.String("start", "", "Start of the range, RFC 3339 (required)")
	flags.String("end", "", "End of the range, RFC 3339 (required)")

	backfillCmd.AddCommand(backfillCreateCmd)
	backfillCmd.AddCommand(backfillPauseCmd("pause [namespace] [flow] [trigger]", "Pause a running backfill", true))
	backfillCmd.AddCommand(backfillPauseCmd("resume [namespace] [flow] [trigger]", "Resume a paused backfill", false))
	backfillCmd.AddCommand(backfillDeleteCmd)
	rootCmd.AddCommand(backfillCmd)
}
