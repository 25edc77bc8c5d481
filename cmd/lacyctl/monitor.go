package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bbernstein/lacylights-control/pkg/artnet"
)

// channelRange is an inclusive 1-based DMX address range.
type channelRange struct{ first, last int }

func parseRange(s string) (channelRange, error) {
	lo, hi, found := strings.Cut(s, "-")
	first, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return channelRange{}, fmt.Errorf("invalid channel range %q", s)
	}
	last := first
	if found {
		if last, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
			return channelRange{}, fmt.Errorf("invalid channel range %q", s)
		}
	}
	if first < 1 || last > int(artnet.DMXDataLength) || first > last {
		return channelRange{}, fmt.Errorf("channel range %q outside 1-512", s)
	}
	return channelRange{first, last}, nil
}

// monitorStats counts received traffic.
type monitorStats struct {
	packets uint64
	bytes   uint64
	ignored uint64
}

func (s monitorStats) String() string {
	return fmt.Sprintf("%s packets, %s, %s ignored",
		humanize.Comma(int64(s.packets)), humanize.Bytes(s.bytes), humanize.Comma(int64(s.ignored)))
}

func newMonitorCmd() *cobra.Command {
	var (
		listen   string
		universe int
		channels string
		changes  bool
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Print ArtDmx frames received on the Art-Net port",
		Example: `  lacyctl monitor --channels 1-16
  lacyctl monitor --universe 2 --changes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rng, err := parseRange(channels)
			if err != nil {
				return err
			}
			conn, err := net.ListenPacket("udp4", listen)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", listen, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Infof("👀 Watching universe %d channels %d-%d on %s", universe, rng.first, rng.last, conn.LocalAddr())
			stats, err := monitor(ctx, conn, cmd.OutOrStdout(), universe, rng, changes)
			fmt.Fprintln(cmd.OutOrStdout(), stats)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&listen, "listen", ":"+strconv.Itoa(artnet.DefaultPort), "UDP address to listen on")
	f.IntVarP(&universe, "universe", "u", 1, "Universe to show (1-based)")
	f.StringVarP(&channels, "channels", "c", "1-16", "Channel range to print, e.g. 1-16 or 7")
	f.BoolVar(&changes, "changes", false, "Only print frames whose shown channels changed")
	return cmd
}

// monitor reads packets from conn until ctx is done or the connection closes.
func monitor(ctx context.Context, conn net.PacketConn, out io.Writer, universe int, rng channelRange, changesOnly bool) (monitorStats, error) {
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	var stats monitorStats
	var last []byte
	buf := make([]byte, artnet.PacketSize+64)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return stats, nil
			}
			return stats, err
		}
		stats.bytes += uint64(n)

		pkt, err := artnet.ParseDMXPacket(buf[:n])
		if err != nil || pkt.Universe != universe {
			stats.ignored++
			continue
		}
		stats.packets++

		shown := pkt.Channels[rng.first-1 : rng.last]
		if changesOnly && last != nil && string(last) == string(shown) {
			continue
		}
		last = append(last[:0], shown...)
		fmt.Fprintf(out, "%s seq=%3d %s\n", time.Now().Format("15:04:05.000"), pkt.Sequence, formatChannels(rng.first, shown))
	}
}

func formatChannels(first int, values []byte) string {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d:%d", first+i, v)
	}
	return b.String()
}
