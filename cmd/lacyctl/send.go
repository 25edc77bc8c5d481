package main

import (
	"fmt"
	"net"
	"strconv"

	"github.com/hypebeast/go-osc/osc"
	"github.com/spf13/cobra"

	"github.com/bbernstein/lacylights-control/internal/services/input"
	"github.com/bbernstein/lacylights-control/internal/services/router"
)

func newSendCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Inject MIDI or OSC input into the router",
	}

	var channel int
	midiCmd := &cobra.Command{
		Use:   "midi <cc|noteon|noteoff> <number> <value>",
		Short: "Send a MIDI event through the server",
		Example: `  lacyctl send midi cc 7 64
  lacyctl send midi noteon 36 127 --channel 10`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := parseMIDIArgs(args, channel)
			if err != nil {
				return err
			}
			res, err := newAPIClient(opts.server).SendMIDI(cmd.Context(), ev)
			if err != nil {
				return err
			}
			printResult(cmd, ev.String(), res)
			return nil
		},
	}
	midiCmd.Flags().IntVarP(&channel, "channel", "c", 1, "MIDI channel (1-16)")
	cmd.AddCommand(midiCmd)

	var udp string
	oscCmd := &cobra.Command{
		Use:   "osc <address> [value]",
		Short: "Send an OSC value through the server or straight to its UDP port",
		Example: `  lacyctl send osc /lacylights/dimmer 0.5
  lacyctl send osc /next --udp localhost:8000`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := 1.0
			if len(args) == 2 {
				v, err := strconv.ParseFloat(args[1], 64)
				if err != nil {
					return fmt.Errorf("invalid value %q", args[1])
				}
				value = v
			}
			if udp != "" {
				return sendOSC(udp, args[0], value)
			}
			ev := input.OSCEvent{Address: args[0], Value: value}
			res, err := newAPIClient(opts.server).SendOSC(cmd.Context(), ev)
			if err != nil {
				return err
			}
			printResult(cmd, fmt.Sprintf("%s %g", ev.Address, ev.Value), res)
			return nil
		},
	}
	oscCmd.Flags().StringVar(&udp, "udp", "", "Send a raw OSC packet to host:port instead of the REST API")
	cmd.AddCommand(oscCmd)

	return cmd
}

func parseMIDIArgs(args []string, channel int) (input.MIDIEvent, error) {
	if channel < 1 || channel > 16 {
		return input.MIDIEvent{}, fmt.Errorf("channel must be 1-16, got %d", channel)
	}
	number, err := strconv.Atoi(args[1])
	if err != nil || number < 0 || number > 127 {
		return input.MIDIEvent{}, fmt.Errorf("invalid number %q", args[1])
	}
	value, err := strconv.Atoi(args[2])
	if err != nil || value < 0 || value > 127 {
		return input.MIDIEvent{}, fmt.Errorf("invalid value %q", args[2])
	}

	ev := input.MIDIEvent{Type: input.MIDIType(args[0]), Channel: channel - 1, Source: "lacyctl"}
	switch ev.Type {
	case input.ControlChange:
		ev.Controller, ev.Value = number, value
	case input.NoteOn, input.NoteOff:
		ev.Note, ev.Velocity = number, value
	default:
		return input.MIDIEvent{}, fmt.Errorf("unknown MIDI event type %q", args[0])
	}
	return ev, nil
}

func sendOSC(hostport, address string, value float64) error {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port %q", portStr)
	}
	msg := osc.NewMessage(address)
	msg.Append(float32(value))
	return osc.NewClient(host, port).Send(msg)
}

func printResult(cmd *cobra.Command, label string, res router.Result) {
	out := cmd.OutOrStdout()
	switch {
	case res.Learned:
		fmt.Fprintf(out, "%s: captured by learn\n", label)
	case len(res.Fired) == 0:
		fmt.Fprintf(out, "%s: no binding\n", label)
	default:
		for _, f := range res.Fired {
			if f.Action {
				fmt.Fprintf(out, "%s: action %s\n", label, f.ControlID)
				continue
			}
			fmt.Fprintf(out, "%s: %s=%d\n", label, f.ControlID, f.Value)
		}
	}
}
