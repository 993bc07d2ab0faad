package cli

import "github.com/spf13/cobra"

var version = "dev"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "vendorbill-cli",
		Short:         "Price quotes and preview document numbers offline",
		Long:          "vendorbill-cli prices line items against a tax catalog described in YAML and formats document numbers, without a database or a running server.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newQuoteCmd())
	cmd.AddCommand(newNumberCmd())
	return cmd
}

func Execute() error {
	return newRootCmd().Execute()
}
