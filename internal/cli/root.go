// Package cli implements the betterui command line interface.
package cli

import (
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	cfgFile   string
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "betterui",
	Short: "Capability execution engine",
	Long: `betterui runs a capability execution engine: typed capabilities with
schema-validated input, middleware pipelines and origin-aware dispatch,
served over HTTP with discovery, metrics and an event stream.`,
	Version: version,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.betterui/betterui.json)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:3001", "engine server URL for client commands")

	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}

// RootCmd returns the root command for testing.
func RootCmd() *cobra.Command {
	return rootCmd
}
