package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var statusCmd = &cobra.Command{
	Use:   "status [execution_id]",
	Short: "Show the state of an execution",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewFlowClient(viper.GetString("url"), viper.GetString("tenant"))
		execution, err := client.GetExecution(args[0])
		if err != nil {
			printAPIError(cmd, err)
			return
		}

		cmd.Printf("Execution: %s\nFlow: %s/%s rev %d\nState: %s\n",
			execution.ID, execution.Namespace, execution.FlowID, execution.FlowRevision, execution.State)
		if execution.TriggerID != nil {
			cmd.Printf("Trigger: %s\n", *execution.TriggerID)
		}
		if execution.ScheduleDate != nil {
			cmd.Printf("Schedule date: %s\n", execution.ScheduleDate.Format(time.RFC3339))
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
