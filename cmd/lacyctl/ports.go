package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // autoregisters driver

	"github.com/bbernstein/lacylights-control/internal/services/midiinput"
)

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List local MIDI input ports",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer midi.CloseDriver()

			ports := midiinput.Ports()
			if len(ports) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no MIDI input ports")
				return nil
			}
			for i, name := range ports {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", i, name)
			}
			return nil
		},
	}
}
