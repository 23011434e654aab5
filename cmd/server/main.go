package main

import (
	"os"

	"github.com/spf13/cobra"
)

const app = "promotion-prediction-service"

var rootCmd = &cobra.Command{
	Use:           app,
	Short:         "Employee promotion prediction API",
	SilenceUsage:  true,
	SilenceErrors: true,
	// serve is the default command
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().Int("port", 8000, "port to listen on (overrides SERVER_PORT)")
	rootCmd.PersistentFlags().String("model", "models/promotion_model.json", "model artifact path (overrides MODEL_PATH)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (overrides LOGGER_LEVEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
