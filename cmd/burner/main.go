package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides BURNER_LOG_LEVEL)")
	rootCmd.AddCommand(ServeCmd)
	rootCmd.AddCommand(RandomCmd)
}

var rootCmd = &cobra.Command{
	Use:   "burner",
	Short: "burner accounts and VRF random numbers on a Starknet chain",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.HelpFunc()(cmd, args)
	},
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		panic(err)
	}
}
