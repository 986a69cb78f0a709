package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "flowctl",
	Short: "Flowctl is a command line tool for interacting with the flowplane scheduler",
	Long: `flowctl is the command-line interface for the FlowPlane workflow scheduler.

FlowPlane evaluates cron schedule triggers declared in flow definitions and
creates executions when they fire. flowctl talks to the scheduler's admin API
and also offers offline helpers for working with cron expressions.

Common workflows:

  Save a flow definition:
    flowctl flow save --file flow.json

  Inspect registered triggers:
    flowctl triggers list

  Replay a missed window:
    flowctl backfill create --namespace company.team --flow daily-report \
      --trigger schedule --start 2026-01-01T00:00:00Z --end 2026-01-07T00:00:00Z

  Check an execution:
    flowctl status <execution-id>

  Validate a cron expression locally:
    flowctl cron next "0 8 * * *" --count 3

Configuration:
  Set the API endpoint and tenant via environment variables or a config file:
    FLOWPLANE_URL       API endpoint (default: http://localhost:6161)
    FLOWPLANE_TENANT    Tenant the commands operate on`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".flowctl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".flowctl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "FLOWPLANE_VARNAME"
	viper.SetEnvPrefix("FLOWPLANE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.flowctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:6161", "FlowPlane Scheduler URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().StringP("tenant", "t", "", "Tenant the commands operate on")
	viper.BindPFlag("tenant", rootCmd.PersistentFlags().Lookup("tenant"))
}
