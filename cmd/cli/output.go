package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// printOut writes v in the --format selected on the root command. YAML is
// produced from the JSON form so both outputs share field names.
func printOut(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}

	format, _ := cmd.Flags().GetString("format")
	if format != "yaml" {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}

	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
