package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bbernstein/lacylights-control/internal/services/track"
)

func newTrackCmd() *cobra.Command {
	cfg := track.DefaultConfig()
	var (
		shape      string
		pointsFile string
		steps      int
	)

	cmd := &cobra.Command{
		Use:   "track",
		Short: "Compute autopilot track positions and their pan/tilt values",
		Example: `  lacyctl track --shape square --position 25
  lacyctl track --shape figure8 --steps 8
  lacyctl track --shape custom --points points.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Shape = track.Shape(shape)
			if !cfg.Shape.Valid() {
				return fmt.Errorf("unknown shape %q", shape)
			}
			if pointsFile != "" {
				pts, err := loadPoints(pointsFile)
				if err != nil {
					return err
				}
				cfg.Points = pts
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "radius %.2f\n", track.EffectiveRadius(cfg.Size, cfg.CenterX, cfg.CenterY))

			if steps <= 0 {
				printPoint(cmd, cfg)
				return nil
			}
			for i := 0; i < steps; i++ {
				cfg.Position = float64(i) * 100 / float64(steps)
				printPoint(cmd, cfg)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&shape, "shape", string(track.Circle), "Track shape (circle, square, triangle, figure8, linear, random, custom)")
	f.Float64Var(&cfg.Position, "position", 0, "Position along the track in percent")
	f.Float64Var(&cfg.Size, "size", cfg.Size, "Track size in percent")
	f.Float64Var(&cfg.CenterX, "cx", cfg.CenterX, "Centre X in percent")
	f.Float64Var(&cfg.CenterY, "cy", cfg.CenterY, "Centre Y in percent")
	f.StringVar(&pointsFile, "points", "", "YAML file of {x, y} points for the custom shape")
	f.IntVar(&steps, "steps", 0, "Sample the whole track in this many steps")
	return cmd
}

func printPoint(cmd *cobra.Command, cfg track.Config) {
	pt := track.Compute(cfg)
	pan, tilt := track.ToDMX(pt)
	fmt.Fprintf(cmd.OutOrStdout(), "%6.2f%%  x=%6.2f y=%6.2f  pan=%3d tilt=%3d\n", cfg.Position, pt.X, pt.Y, pan, tilt)
}

func loadPoints(path string) ([]track.Point, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read points: %w", err)
	}
	var pts []track.Point
	if err := yaml.Unmarshal(data, &pts); err != nil {
		return nil, fmt.Errorf("failed to parse points: %w", err)
	}
	return pts, nil
}
