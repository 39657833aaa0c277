package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/flowtrace/flowtrace/pkg/flowapi"
)

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "flowtrace",
		Short: "Flowtrace workflow execution debugger",
		Long: `Flowtrace inspects workflow executions hosted on a workflow-automation
platform and discovers which executions likely triggered which, across
workflow boundaries.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("api-url", "", "Override platform API URL")
	rootCmd.PersistentFlags().String("api-key", "", "Override platform API key")

	rootCmd.AddCommand(NewWorkflowsCommand())
	rootCmd.AddCommand(NewExecutionsCommand())
	rootCmd.AddCommand(NewTraceCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newClient builds an API client from config plus any command-line
// overrides.
func newClient(cmd *cobra.Command) (*flowapi.Client, error) {
	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	baseURL := config.BaseURL
	if override, _ := cmd.Flags().GetString("api-url"); override != "" {
		baseURL = override
	}

	apiKey := config.APIKey
	if override, _ := cmd.Flags().GetString("api-key"); override != "" {
		apiKey = override
	}

	return flowapi.NewClient(
		flowapi.WithBaseURL(baseURL),
		flowapi.WithAPIKey(apiKey),
		flowapi.WithTimeout(config.Timeout()),
	), nil
}

func printJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	return encoder.Encode(value)
}
