package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/eliasnau/imagetools/tools"
)

func newToolsCmd(a *app) *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "tools [QUERY...]",
		Short: "List the available tools, optionally filtered by a search query",
		RunE: func(_ *cobra.Command, args []string) error {
			reg := tools.Default()
			found := reg.Search(strings.Join(args, " "))
			if asYAML {
				enc := yaml.NewEncoder(a.stdout)
				defer enc.Close()
				return enc.Encode(found)
			}
			if len(found) == 0 {
				fmt.Fprintln(a.stdout, "No tools found.")
				return nil
			}
			matched, _ := tools.NewRegistry(found...)
			for _, g := range matched.Groups() {
				fmt.Fprintln(a.stdout, g.Name)
				for _, t := range g.Tools {
					fmt.Fprintf(a.stdout, "  %-14s %s\n", t.ID, t.Description)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the tools as YAML")
	return cmd
}
