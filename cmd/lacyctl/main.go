// Package main is lacyctl, the operator CLI for the LacyLights control server.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var Version = "dev"

type options struct {
	server  string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "lacyctl",
		Short: "Operator tool for the LacyLights control server",
		Long: `lacyctl inspects and drives a running LacyLights control server.

It can normalize channel type names, compute autopilot track positions,
manage MIDI/OSC bindings, send test input and watch Art-Net output.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}

	root.PersistentFlags().StringVarP(&opts.server, "server", "S", envOr("LACYLIGHTS_SERVER", "http://localhost:4000"),
		"Base URL of the control server")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"Enable debug logging")

	root.AddCommand(
		newNormalizeCmd(),
		newTrackCmd(),
		newBindingsCmd(opts),
		newSendCmd(opts),
		newMonitorCmd(),
		newPortsCmd(),
		newInterfacesCmd(),
	)
	return root
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Errorf("❌ %v", err)
		os.Exit(1)
	}
}
