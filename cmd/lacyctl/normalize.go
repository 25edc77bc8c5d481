package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bbernstein/lacylights-control/internal/services/channeltype"
)

func newNormalizeCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "normalize [type...]",
		Short: "Map raw channel type names to canonical controls",
		Example: `  lacyctl normalize "Red" "Pan Fine" "dimmer"
  lacyctl normalize --list`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			if list {
				fmt.Fprintln(w, "CONTROL\tALIASES")
				for _, c := range channeltype.All() {
					fmt.Fprintf(w, "%s\t%s\n", c, strings.Join(channeltype.Aliases(c), ", "))
				}
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("at least one channel type is required")
			}

			fmt.Fprintln(w, "INPUT\tCONTROL\tRULE")
			for _, raw := range args {
				c, ok := channeltype.Normalize(raw)
				if !ok {
					fmt.Fprintf(w, "%q\t-\t-\n", raw)
					continue
				}
				fmt.Fprintf(w, "%q\t%s\t%s\n", raw, c, channeltype.Rule(raw))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&list, "list", "l", false, "List every canonical control and its aliases")
	return cmd
}
