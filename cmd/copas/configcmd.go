package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/copas/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the daemon config file",
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigShowCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("path")
			force, _ := cmd.Flags().GetBool("force")
			if err := config.Init(path, config.Default(), force); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().String("path", config.DefaultPath(), "where to write the config file")
	cmd.Flags().Bool("force", false, "overwrite an existing file")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective daemon configuration",
		Long: `Prints the configuration the daemon would start with, after merging the
config file, COPAS_* environment variables and defaults.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.FromViper(v)
			if err != nil {
				return err
			}
			return render(v, cfg, func(w io.Writer) error {
				if used := v.ConfigFileUsed(); used != "" {
					fmt.Fprintf(w, "# %s\n", used)
				}
				return config.Write(w, cfg)
			})
		},
	}
	addOutputFlag(cmd)
	addConfigFlag(cmd)
	return cmd
}
