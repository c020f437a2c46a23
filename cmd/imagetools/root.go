package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/eliasnau/imagetools/config"
	"github.com/eliasnau/imagetools/errors"
	"github.com/eliasnau/imagetools/fs"
	"github.com/eliasnau/imagetools/fs/billy"
	"github.com/eliasnau/imagetools/internal/watch"
	"github.com/eliasnau/imagetools/output"
	"github.com/eliasnau/imagetools/pipeline"
)

// app holds what every subcommand needs. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	verbose    bool
	outDir     string
	overwrite  bool

	fsys   fs.Filesystem
	cfg    *config.Config
	logger *slog.Logger
	proc   *pipeline.Processor
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "imagetools",
		Short:         "Convert images, round their corners and inspect or strip metadata",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd, true)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "configuration file (default: first imagetools/config.yaml in the XDG config dirs)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVarP(&a.outDir, "out", "o", "", "output directory (default from configuration)")
	flags.BoolVar(&a.overwrite, "overwrite", false, "replace existing output files")

	root.AddCommand(
		newConvertCmd(a),
		newRoundCmd(a),
		newMetadataCmd(a),
		newToolsCmd(a),
		newConfigCmd(a),
	)
	return root
}

// setup prepares the filesystem, configuration and logger. Without load the
// built-in defaults are used and no configuration file is read.
func (a *app) setup(cmd *cobra.Command, load bool) error {
	a.fsys = billy.NewOSFS("/")

	var err error
	switch {
	case !load:
		a.cfg = config.Default()
	case a.configPath != "":
		path, absErr := fs.GetAbs(a.configPath)
		if absErr != nil {
			return absErr
		}
		a.cfg, err = config.Load(a.fsys, path)
	default:
		a.cfg, err = config.LoadDefault(a.fsys)
	}
	if err != nil {
		return err
	}

	level, err := a.cfg.Logging.LogLevel()
	if err != nil {
		return err
	}
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	a.proc = pipeline.New(pipeline.WithLogger(a.logger))

	if a.outDir == "" {
		a.outDir = a.cfg.Output.Dir
	}
	if !cmd.Flags().Changed("overwrite") {
		a.overwrite = a.cfg.Output.Overwrite
	}
	a.logger.Debug("configuration loaded", "out", a.outDir, "overwrite", a.overwrite)
	return nil
}

// saver writes into the output directory.
func (a *app) saver() (*output.Saver, string, error) {
	dir, err := fs.GetAbs(a.outDir)
	if err != nil {
		return nil, "", err
	}
	return output.NewSaver(a.fsys,
		output.WithOverwrite(a.overwrite),
		output.WithLogger(a.logger),
	), dir, nil
}

// read loads an input file.
func (a *app) read(name string) (pipeline.Input, error) {
	path, err := fs.GetAbs(name)
	if err != nil {
		return pipeline.Input{}, err
	}
	f, err := a.fsys.Open(path)
	if err != nil {
		return pipeline.Input{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return pipeline.Input{}, err
	}
	if info.IsDir() {
		return pipeline.Input{}, errors.Newf(errors.CodeInvalidInput, "%s is a directory", path)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return pipeline.Input{}, err
	}
	return pipeline.Input{Name: filepath.Base(f.Name()), Data: data}, nil
}

// forEach runs fn for every file, or, with watch set, keeps re-running it
// for a single file whenever it changes.
func (a *app) forEach(ctx context.Context, files []string, watching bool, fn func(ctx context.Context, file string) error) error {
	if !watching {
		for _, f := range files {
			if err := fn(ctx, f); err != nil {
				return fmt.Errorf("%s: %w", f, err)
			}
		}
		return nil
	}
	if len(files) != 1 {
		return fmt.Errorf("--watch takes exactly one file, got %d", len(files))
	}
	path, err := fs.GetAbs(files[0])
	if err != nil {
		return err
	}
	a.logger.Info("watching for changes", "path", path)
	return watch.New(path, watch.WithLogger(a.logger)).Run(ctx, func(ctx context.Context) error {
		return fn(ctx, path)
	})
}

// checkOutputNames rejects inputs that would be saved under the same name,
// such as a/x.jpg and b/x.jpg, before any of them is processed.
func checkOutputNames(files []string, suffix string) error {
	seen := make(map[string]string, len(files))
	for _, f := range files {
		base := output.BaseName(filepath.Base(f), suffix)
		if prev, ok := seen[base]; ok {
			return errors.Newf(errors.CodeInvalidInput, "%s and %s would both be saved as %s", prev, f, base).
				WithContext("name", base)
		}
		seen[base] = f
	}
	return nil
}
