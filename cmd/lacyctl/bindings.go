package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/bbernstein/lacylights-control/internal/services/binding"
)

// bindingsFile is the on-disk form used by export and import.
type bindingsFile struct {
	Bindings []binding.Binding `yaml:"bindings"`
}

func newBindingsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bindings",
		Aliases: []string{"b"},
		Short:   "List, export and import control bindings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the binding table",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := newAPIClient(opts.server).Bindings(cmd.Context())
			if err != nil {
				return err
			}
			writeBindingTable(cmd, list)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "export [file]",
		Short: "Write the binding table as YAML (stdout without a file)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := newAPIClient(opts.server).Bindings(cmd.Context())
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(bindingsFile{Bindings: list})
			if err != nil {
				return err
			}
			if len(args) == 0 {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(args[0], data, 0644)
		},
	})

	var replace bool
	var concurrency int
	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load bindings from a YAML export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := readBindingsFile(args[0])
			if err != nil {
				return err
			}
			client := newAPIClient(opts.server)
			if replace {
				if err := client.ClearBindings(cmd.Context()); err != nil {
					return err
				}
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(concurrency)
			for _, b := range list {
				b := b
				g.Go(func() error {
					_, err := client.PutBinding(ctx, b)
					if err == nil {
						log.Debugf("🎛️ Imported binding %s", b.ControlID)
					}
					return err
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d bindings\n", len(list))
			return nil
		},
	}
	importCmd.Flags().BoolVar(&replace, "replace", false, "Clear the table before importing")
	importCmd.Flags().IntVar(&concurrency, "concurrency", 4, "Parallel requests")
	cmd.AddCommand(importCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <controlId>...",
		Short: "Remove bindings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(opts.server)
			for _, id := range args {
				if err := client.DeleteBinding(cmd.Context(), id); err != nil {
					return err
				}
			}
			return nil
		},
	})

	return cmd
}

func readBindingsFile(path string) ([]binding.Binding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bindings: %w", err)
	}
	var f bindingsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse bindings: %w", err)
	}
	for i, b := range f.Bindings {
		if b.ControlID == "" {
			return nil, fmt.Errorf("binding %d has no controlId", i)
		}
	}
	return f.Bindings, nil
}

func writeBindingTable(cmd *cobra.Command, list []binding.Binding) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	fmt.Fprintln(w, "CONTROL\tMIDI\tRANGE\tCURVE\tOSC")
	for _, b := range list {
		fmt.Fprintf(w, "%s\t%s\t%d-%d\t%g\t%s\n", b.ControlID, midiLabel(b), b.MinValue, b.MaxValue, b.Curve, orDash(b.OSCAddress))
	}
}

func midiLabel(b binding.Binding) string {
	ch := strconv.Itoa(b.Channel + 1)
	switch {
	case b.Controller != nil:
		return "ch" + ch + " CC" + strconv.Itoa(*b.Controller)
	case b.Note != nil:
		return "ch" + ch + " note" + strconv.Itoa(*b.Note)
	}
	return "-"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
