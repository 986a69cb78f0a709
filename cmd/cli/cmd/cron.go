package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"flowplane/internal/cron"
)

var cronCmd = &cobra.Command{
	Use:   "cron",
	Short: "Work with cron expressions offline",
}

var cronValidateCmd = &cobra.Command{
	Use:   "validate [expression]",
	Short: "Check whether a cron expression is valid",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withSeconds, _ := cmd.Flags().GetBool("seconds")

		if _, err := cron.Parse(args[0], withSeconds, time.UTC); err != nil {
			cmd.Printf("Invalid: %v\n", err)
			return
		}
		cmd.Println("✓ Valid")
	},
}

var cronNextCmd = &cobra.Command{
	Use:   "next [expression]",
	Short: "Print the upcoming fire times of a cron expression",
	Long: `Print the next fire times of a cron expression, computed locally.

Example:
  flowctl cron next "0 8 * * *" --count 3 --timezone Europe/Paris`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		count, _ := flags.GetInt("count")
		timezone, _ := flags.GetString("timezone")
		withSeconds, _ := flags.GetBool("seconds")

		loc := time.UTC
		if timezone != "" {
			var err error
			loc, err = time.LoadLocation(timezone)
			if err != nil {
				cmd.Printf("Error: unknown timezone %q\n", timezone)
				return
			}
		}

		evaluator, err := cron.Parse(args[0], withSeconds, loc)
		if err != nil {
			cmd.Printf("Invalid: %v\n", err)
			return
		}

		t := time.Now().In(loc)
		for i := 0; i < count; i++ {
			next, ok := evaluator.NextAfter(t)
			if !ok {
				cmd.Println("No upcoming fire times")
				return
			}
			cmd.Println(next.Format(time.RFC3339))
			t = next
		}
	},
}

func init() {
	cronValidateCmd.Flags().Bool("seconds", false, "Expression has a leading seconds field")

	cronNextCmd.Flags().Int("count", 1, "How many fire times to print")
	cronNextCmd.Flags().String("timezone", "", "IANA timezone to evaluate in (default UTC)")
	cronNextCmd.Flags().Bool("seconds", false, "Expression has a leading seconds field")

	cronCmd.AddCommand(cronValidateCmd)
	cronCmd.AddCommand(cronNextCmd)
	rootCmd.AddCommand(cronCmd)
}
