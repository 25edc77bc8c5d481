package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bbernstein/lacylights-control/internal/services/network"
)

func newInterfacesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interfaces [ARTNET_BROADCAST value]",
		Short: "List Art-Net broadcast candidates and resolve a broadcast setting",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cands, err := network.Candidates()
			if err != nil {
				return err
			}
			value := network.Auto
			if len(args) == 1 {
				value = args[0]
			}
			return printCandidates(cmd, cands, value)
		},
	}
}

func printCandidates(cmd *cobra.Command, cands []network.Candidate, value string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INTERFACE\tKIND\tADDRESS\tBROADCAST")
	for _, c := range cands {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Interface, c.Kind, c.Address, c.Broadcast)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	resolved, err := network.ResolveBroadcast(value, cands)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", value, resolved)
	return nil
}
