package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lantos1618/better-ui-sub002/pkg/transport"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List capabilities on a running engine",
	RunE:  runList,
}

var describeCmd = &cobra.Command{
	Use:   "describe <name>",
	Short: "Show a capability's discovery summary",
	Args:  cobra.ExactArgs(1),
	RunE:  runDescribe,
}

var execCmd = &cobra.Command{
	Use:   "exec <name>",
	Short: "Execute a capability on a running engine",
	Args:  cobra.ExactArgs(1),
	RunE:  runExec,
}

var execInput string

func init() {
	execCmd.Flags().StringVar(&execInput, "input", "{}", "capability input as a JSON object")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(execCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	client := transport.NewClient(serverURL, nil)

	summaries, err := client.List(cmd.Context())
	if err != nil {
		return err
	}

	if len(summaries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No capabilities registered.")
		return nil
	}

	w := cmd.OutOrStdout()
	for _, s := range summaries {
		line := s.Name
		if len(s.Tags) > 0 {
			line += " [" + strings.Join(s.Tags, ", ") + "]"
		}
		if s.Description != "" {
			line += "  " + s.Description
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func runDescribe(cmd *cobra.Command, args []string) error {
	client := transport.NewClient(serverURL, nil)

	summary, err := client.Describe(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func runExec(cmd *cobra.Command, args []string) error {
	var input map[string]interface{}
	if err := json.Unmarshal([]byte(execInput), &input); err != nil {
		return fmt.Errorf("invalid --input JSON: %w", err)
	}

	client := transport.NewClient(serverURL, nil)

	output, err := client.Execute(cmd.Context(), args[0], input)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
