package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// Execute runs the swagger2loadtest CLI. Cancelling ctx stops generation
// between stages.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "swagger2loadtest",
		Short:         "Generate LoadRunner scripts from Swagger/OpenAPI specs",
		Long:          "swagger2loadtest renders LoadRunner web scripts, with example request bodies, from Swagger 2.0 and OpenAPI 3 documents.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Config file path (YAML or JSON)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging on stderr")

	cmd.AddCommand(newGenerateCmd(), newInitCmd())

	// Convert Cobra flag errors (like unknown flags) into friendly usage errors
	// that also show the command's help text.
	for _, c := range append([]*cobra.Command{cmd}, cmd.Commands()...) {
		c.SetFlagErrorFunc(flagUsageError)
	}

	return cmd
}

func flagUsageError(c *cobra.Command, err error) error {
	return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
}
