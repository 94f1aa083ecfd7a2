package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "inspect the client's effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE:  handleConfigShow,
}

func handleConfigShow(cmd *cobra.Command, _ []string) error {
	out, err := yaml.Marshal(appConfig)
	if err != nil {
		return fmt.Errorf("mdclient: marshal config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

// RegisterConfig wires the config command tree onto root.
func RegisterConfig(root *cobra.Command) { root.AddCommand(configCmd) }
