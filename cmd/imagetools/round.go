package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eliasnau/imagetools/corners"
	"github.com/eliasnau/imagetools/formats"
	"github.com/eliasnau/imagetools/output"
	"github.com/eliasnau/imagetools/pipeline"
)

func newRoundCmd(a *app) *cobra.Command {
	var (
		radius     int
		background string
		format     string
		quality    int
		watching   bool
	)
	cmd := &cobra.Command{
		Use:   "round-corners FILE...",
		Short: "Apply rounded corners to images",
		Example: `  imagetools round-corners avatar.png --radius 48
  imagetools round-corners photo.jpg --background black --format png`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("radius") {
				radius = a.cfg.Round.Radius
			}
			if !cmd.Flags().Changed("background") {
				background = a.cfg.Round.Background
			}
			if !cmd.Flags().Changed("format") {
				format = a.cfg.Round.Format
			}
			if !cmd.Flags().Changed("quality") {
				quality = a.cfg.Round.Quality
			}
			bg, err := corners.ParseBackground(background)
			if err != nil {
				return err
			}
			opts := pipeline.RoundOptions{Radius: radius, Background: bg, Quality: quality}
			if format != "" {
				spec, err := formats.ParseOutput(format)
				if err != nil {
					return err
				}
				opts.MIME = spec.MIME
			}
			if err := checkOutputNames(args, output.SuffixRounded); err != nil {
				return err
			}

			return a.forEach(cmd.Context(), args, watching, func(ctx context.Context, file string) error {
				in, err := a.read(file)
				if err != nil {
					return err
				}
				res, err := a.proc.RoundCorners(ctx, in, opts)
				if err != nil {
					return err
				}
				if res.Warning != "" {
					fmt.Fprintln(a.stderr, "warning:", res.Warning)
				}
				return a.publish(ctx, in, res, output.SuffixRounded)
			})
		},
	}
	cmd.Flags().IntVarP(&radius, "radius", "r", corners.DefaultRadius, fmt.Sprintf("corner radius in pixels (presets: %v)", corners.PresetRadii))
	cmd.Flags().StringVarP(&background, "background", "b", "", "transparent, white or black")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format (default: keep the input format)")
	cmd.Flags().IntVarP(&quality, "quality", "q", 0, "quality 1-100 for lossy formats")
	cmd.Flags().BoolVarP(&watching, "watch", "w", false, "render again whenever the file changes")
	return cmd
}
