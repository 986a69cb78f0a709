package cmd

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

// resetViper clears config state between tests and restores env binding.
func resetViper() {
	viper.Reset()
	viper.SetEnvPrefix("FLOWPLANE")
	viper.AutomaticEnv()
}

func TestRootCommand_EnvVarBinding(t *testing.T) {
	resetViper()

	t.Setenv("FLOWPLANE_TENANT", "env-tenant-value")
	t.Setenv("FLOWPLANE_URL", "http://custom-url:8080")

	tenant := viper.GetString("tenant")
	url := viper.GetString("url")

	if tenant != "env-tenant-value" {
		t.Errorf("expected tenant from env var, got: %s", tenant)
	}
	if url != "http://custom-url:8080" {
		t.Errorf("expected url from env var, got: %s", url)
	}
}

func TestRootCommand_ExecuteReturnsNoError(t *testing.T) {
	resetViper()

	rootCmd.SetArgs([]string{"--help"})

	err := rootCmd.Execute()
	if err != nil {
		t.Errorf("root command should execute without error: %v", err)
	}
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	expected := map[string]bool{
		"flow":                  false,
		"triggers":              false,
		"backfill":              false,
		"status [execution_id]": false,
		"cron":                  false,
	}
	for _, cmd := range rootCmd.Commands() {
		if _, ok := expected[cmd.Use]; ok {
			expected[cmd.Use] = true
		}
	}
	for use, found := range expected {
		if !found {
			t.Errorf("expected %q subcommand to be registered with root command", use)
		}
	}
}

func TestExecute_ReturnsError(t *testing.T) {
	resetViper()

	rootCmd.SetArgs([]string{"unknown-command-xyz"})

	err := Execute()
	if err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestRootCommand_CustomConfigFile(t *testing.T) {
	resetViper()

	tmpFile, err := os.CreateTemp("", "flowctl-test-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	tmpFile.WriteString("url: http://custom-from-config:9999\ntenant: config-tenant\n")
	tmpFile.Close()

	cfgFile = tmpFile.Name()
	initConfig()

	url := viper.GetString("url")
	if url != "http://custom-from-config:9999" {
		t.Errorf("expected url from config file, got: %s", url)
	}

	tenant := viper.GetString("tenant")
	if tenant != "config-tenant" {
		t.Errorf("expected tenant from config file, got: %s", tenant)
	}

	// Reset for other tests
	cfgFile = ""
}
