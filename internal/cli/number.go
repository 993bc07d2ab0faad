package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/vendorbill/internal/docnumber/format"
	"github.com/spf13/cobra"
)

func newNumberCmd() *cobra.Command {
	var (
		prefix   string
		next     int64
		year     int
		template string
		plain    bool
	)

	cmd := &cobra.Command{
		Use:   "number --prefix INV --next 7 --year 2025",
		Short: "Format a document number",
		Long:  "Prints the document number a counter would hand out for the given prefix, sequence and year. Nothing is stored or incremented.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix = strings.ToUpper(strings.TrimSpace(prefix))
			if prefix == "" {
				return fmt.Errorf("--prefix must not be empty")
			}
			if next < 1 {
				return fmt.Errorf("--next must be at least 1, got %d", next)
			}
			if year <= 0 {
				year = time.Now().UTC().Year()
			}

			number := format.Next(prefix, next, year)
			if strings.TrimSpace(template) != "" {
				var err error
				number, err = format.FormatNumber(template, prefix, time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), next)
				if err != nil {
					return err
				}
			}

			if plain {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), number)
				return err
			}
			_, err := fmt.Fprint(cmd.OutOrStdout(), renderNumber(number))
			return err
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "INV", "document number prefix")
	cmd.Flags().Int64Var(&next, "next", 1, "sequence number to format")
	cmd.Flags().IntVar(&year, "year", 0, "issue year (defaults to the current year)")
	cmd.Flags().StringVar(&template, "template", "", "number template, e.g. {PREFIX}/{YY}{MM}/{SEQ5}")
	cmd.Flags().BoolVar(&plain, "plain", false, "print only the number")
	return cmd
}
