package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/framegate/framegate/settings"
)

var defaultsCmd = &cobra.Command{
	Use:   "defaults [path]",
	Short: "Print the default settings, or save them to a .yaml, .yml or .toml file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := settings.Defaults()
		if len(args) == 1 {
			if err := settings.Save(args[0], s); err != nil {
				return err
			}
			logger.Info("saved default settings", "path", args[0])
			return nil
		}

		w := cmd.OutOrStdout()
		for _, key := range settings.Keys {
			if _, err := fmt.Fprintf(w, "# %s: %s\n", key.Name, key.Description); err != nil {
				return err
			}
		}
		data, err := yaml.Marshal(s)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	},
}
