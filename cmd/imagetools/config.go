package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eliasnau/imagetools/config"
	"github.com/eliasnau/imagetools/errors"
	"github.com/eliasnau/imagetools/fs"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd, false)
		},
	}
	cmd.AddCommand(newConfigInitCmd(a))
	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the default settings",
		Long: `Write a configuration file with the default settings.

The file is written to --config, or to imagetools/config.yaml in the XDG
config home. An existing file is only replaced with --overwrite.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path := config.DefaultPath()
			if a.configPath != "" {
				abs, err := fs.GetAbs(a.configPath)
				if err != nil {
					return err
				}
				path = abs
			}

			exists, err := a.fsys.Exists(path)
			if err != nil {
				return err
			}
			if exists && !a.overwrite {
				return errors.Newf(errors.CodeAlreadyExists, "%s already exists, use --overwrite to replace it", path)
			}
			if err := config.Save(a.fsys, path, config.Default()); err != nil {
				return err
			}
			a.logger.Debug("configuration written", "path", path, "replaced", exists)
			fmt.Fprintf(a.stdout, "wrote %s\n", path)
			return nil
		},
	}
}
