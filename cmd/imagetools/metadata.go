package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/eliasnau/imagetools/exif"
	"github.com/eliasnau/imagetools/output"
	"github.com/eliasnau/imagetools/pipeline"
	"github.com/eliasnau/imagetools/segments"
)

func newMetadataCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Inspect and strip basic image metadata (EXIF)",
	}
	cmd.AddCommand(newMetadataShowCmd(a), newMetadataStripCmd(a))
	return cmd
}

// fileReport is the structured form of `metadata show --yaml`.
type fileReport struct {
	File     string         `yaml:"file"`
	Sections []exif.Section `yaml:"sections"`
	Approx   string         `yaml:"metadata_approx,omitempty"`
}

func newMetadataShowCmd(a *app) *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "show FILE...",
		Short: "Print the metadata of images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var reports []fileReport
			for _, file := range args {
				in, err := a.read(file)
				if err != nil {
					return fmt.Errorf("%s: %w", file, err)
				}
				report, approx, err := a.proc.Inspect(cmd.Context(), in)
				if err != nil {
					return fmt.Errorf("%s: %w", file, err)
				}
				fr := fileReport{File: in.Name, Sections: report.Sections()}
				if approx != nil {
					fr.Approx = approx.String()
				}
				if asYAML {
					reports = append(reports, fr)
					continue
				}
				printReport(a.stdout, fr, report.HasEXIF)
			}
			if asYAML {
				enc := yaml.NewEncoder(a.stdout)
				defer enc.Close()
				return enc.Encode(reports)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the report as YAML")
	return cmd
}

func printReport(w io.Writer, fr fileReport, hasEXIF bool) {
	fmt.Fprintf(w, "== %s ==\n", fr.File)
	for _, s := range fr.Sections {
		fmt.Fprintln(w, s.Title)
		for _, f := range s.Fields {
			fmt.Fprintf(w, "  %s: %s\n", f.Key, f.Value)
		}
	}
	if !hasEXIF {
		fmt.Fprintln(w, "No EXIF metadata found.")
	}
	if fr.Approx != "" {
		fmt.Fprintf(w, "Metadata takes %s of this image.\n", fr.Approx)
	}
	fmt.Fprintln(w)
}

func newMetadataStripCmd(a *app) *cobra.Command {
	var (
		remove   string
		reencode bool
		strict   bool
		jobs     int
	)
	cmd := &cobra.Command{
		Use:   "strip FILE...",
		Short: "Remove metadata from images",
		Long: `Remove metadata from images.

JPEG and PNG files are rewritten segment by segment so the pixels are not
touched. Categories: ` + categoryNames() + `, or "all".
With --reencode the pixels are decoded and encoded again, which drops
everything but the image itself.`,
		Example: `  imagetools metadata strip IMG_0001.jpg --remove location
  imagetools metadata strip *.jpg --remove all --jobs 4`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := a.cfg.Metadata.StripPolicy()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("remove") {
				if policy, err = segments.ParsePolicyList(remove); err != nil {
					return err
				}
			}
			if !cmd.Flags().Changed("strict") {
				strict = a.cfg.Metadata.Strict
			}
			if !cmd.Flags().Changed("jobs") {
				jobs = a.cfg.Metadata.Jobs
			}
			if policy.Empty() && !reencode {
				fmt.Fprintln(a.stderr, "warning: no categories selected, files are copied unchanged")
			}
			opts := pipeline.StripOptions{
				Policy:          policy,
				StripAll:        reencode,
				Strict:          strict,
				FallbackQuality: a.cfg.Metadata.FallbackQuality,
			}
			return a.stripAll(cmd.Context(), args, opts, jobs)
		},
	}
	cmd.Flags().StringVar(&remove, "remove", "", "comma separated categories to remove")
	cmd.Flags().BoolVar(&reencode, "reencode", false, "re-encode the pixels and drop all metadata")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on malformed files instead of re-encoding them")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 1, "number of files processed concurrently")
	return cmd
}

func (a *app) stripAll(ctx context.Context, files []string, opts pipeline.StripOptions, limit int) error {
	if err := checkOutputNames(files, output.SuffixStripped); err != nil {
		return err
	}
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))

	for _, file := range files {
		g.Go(func() error {
			in, err := a.read(file)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			res, err := a.proc.Strip(ctx, in, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}

			mu.Lock()
			defer mu.Unlock()
			if err := a.publish(ctx, in, res, output.SuffixStripped); err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			if res.FellBack {
				fmt.Fprintf(a.stderr, "warning: %s could not be parsed and was re-encoded\n", in.Name)
			}
			for _, s := range res.Removed {
				fmt.Fprintf(a.stdout, "  removed %s (%d bytes)\n", segmentLabel(s), s.Size)
			}
			for _, s := range res.Rewritten {
				fmt.Fprintf(a.stdout, "  pruned  %s\n", segmentLabel(s))
			}
			return nil
		})
	}
	return g.Wait()
}

func segmentLabel(s segments.Segment) string {
	if s.Kind != segments.KindNone {
		return string(s.Kind)
	}
	return s.Name
}

func categoryNames() string {
	var names []string
	for _, c := range segments.AllCategories() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}
