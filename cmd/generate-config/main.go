// Command generate-config writes an example config file with every default.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/debemdeboas/resumark/internal/config"
)

const header = `# Resumark configuration example
# Copy this file to config.yaml and customize as needed.
# Secrets are read from the environment: ED25519_PUBKEY, CLERK_API,
# CLERK_SIGN_IN_URL, S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY.

`

func writeExample(w io.Writer) error {
	data, err := yaml.Marshal(config.Default())
	if err != nil {
		return fmt.Errorf("failed to generate YAML: %w", err)
	}
	_, err = io.WriteString(w, header+string(data))
	return err
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "generate-config [output|-]",
		Short:        "Write config.example.yaml with every default value",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := "config.example.yaml"
			if len(args) > 0 {
				output = args[0]
			}

			if output == "-" {
				return writeExample(cmd.OutOrStdout())
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()

			if err := writeExample(f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated example config: %s\n", output)
			return nil
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
