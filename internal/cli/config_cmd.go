package cli

import (
	"fmt"

	"github.com/rileyhilliard/diagterm/internal/config"
	dterrors "github.com/rileyhilliard/diagterm/internal/errors"
	"github.com/rileyhilliard/diagterm/internal/ui"
	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect the config file",
	}
	cmd.AddCommand(newConfigInitCmd(a), newConfigShowCmd(a))
	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented config file with the defaults",
		Long: `Write a config file with every setting at its default value.

The file goes to --config if given, otherwise ~/.config/diagterm/config.yaml.

Examples:
  diagterm config init
  diagterm config init --force
  diagterm --config ./diagterm.yaml config init`,
		Args: cobra.NoArgs,
		// An existing broken config must not block writing a fresh one.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfgFile
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}
			path = config.ExpandTilde(path)

			if err := config.WriteDefault(path, config.DefaultConfig(), force); err != nil {
				return dterrors.WrapWithCode(err, dterrors.ErrConfig,
					"Could not write "+path,
					"Pass --force to overwrite an existing file")
			}
			if MachineMode() {
				return WriteJSONSuccess(cmd.OutOrStdout(), map[string]string{"path": path})
			}
			ui.PrintSuccess("Wrote " + path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective config",
		Long: `Print the config after defaults and DIAGTERM_* environment overrides.

Examples:
  diagterm config show
  diagterm config show --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			data, err := config.Marshal(a.cfg)
			if err != nil {
				return err
			}
			if MachineMode() {
				return WriteJSONSuccess(out, map[string]string{"path": a.cfgPath, "yaml": string(data)})
			}
			if a.cfgPath != "" {
				fmt.Fprintln(out, ui.MutedStyle().Render("# "+a.cfgPath))
			} else {
				fmt.Fprintln(out, ui.MutedStyle().Render("# defaults (no config file)"))
			}
			_, err = out.Write(data)
			return err
		},
	}
}
