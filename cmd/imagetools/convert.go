package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eliasnau/imagetools/formats"
	"github.com/eliasnau/imagetools/jobs"
	"github.com/eliasnau/imagetools/output"
	"github.com/eliasnau/imagetools/pipeline"
)

func newConvertCmd(a *app) *cobra.Command {
	var (
		format   string
		quality  int
		watching bool
	)
	cmd := &cobra.Command{
		Use:   "convert FILE...",
		Short: "Convert images to another format",
		Example: `  imagetools convert photo.heic --format jpeg --quality 80
  imagetools convert logo.png --format ico --out dist`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("format") {
				format = a.cfg.Convert.Format
			}
			if !cmd.Flags().Changed("quality") {
				quality = a.cfg.Convert.Quality
			}
			spec, err := formats.ParseOutput(format)
			if err != nil {
				return err
			}
			opts := pipeline.ConvertOptions{MIME: spec.MIME, Quality: quality}
			if err := checkOutputNames(args, output.SuffixConverted); err != nil {
				return err
			}

			return a.forEach(cmd.Context(), args, watching, func(ctx context.Context, file string) error {
				in, err := a.read(file)
				if err != nil {
					return err
				}
				res, err := a.proc.Convert(ctx, in, opts)
				if err != nil {
					return err
				}
				return a.publish(ctx, in, res, output.SuffixConverted)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: "+outputNames())
	cmd.Flags().IntVarP(&quality, "quality", "q", 0, "quality 1-100 for lossy formats")
	cmd.Flags().BoolVarP(&watching, "watch", "w", false, "convert again whenever the file changes")
	return cmd
}

// publish saves a result unless a newer run superseded it, then prints a
// one-line summary.
func (a *app) publish(ctx context.Context, in pipeline.Input, res *pipeline.Result, suffix string) error {
	saver, dir, err := a.saver()
	if err != nil {
		return err
	}
	name := output.FileName(output.BaseName(in.Name, suffix), res.MIME, filepath.Ext(in.Name))

	var path string
	err = jobs.RunContext(ctx, func(context.Context) (err error) {
		path, err = saver.Save(dir, name, res.Data)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s -> %s  %s  %dx%d  %s\n",
		in.Name, path, formats.FormatName(res.MIME), res.Width, res.Height,
		pipeline.SizeDelta(len(in.Data), res.Size()))
	return nil
}

func outputNames() string {
	var names []string
	for _, s := range formats.Outputs() {
		names = append(names, s.Extension)
	}
	return strings.Join(names, ", ")
}
