// copas: clipboard history manager.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/copas/internal/config"
	"go.klb.dev/copas/internal/ipc"
	"go.klb.dev/copas/internal/logging"
	"go.klb.dev/copas/internal/message"
	"go.klb.dev/copas/internal/service"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "copas",
		Short: "Clipboard history manager",
		Long: `copas records everything you copy, classifies it (link, email, phone,
code, text, image) and keeps a searchable, bounded history with pinning,
tabs, labels and a PIN-protected vault.

Run "copas daemon" once per login session. Every other command talks to the
daemon over a local socket.

Config file search order (first found wins):
  /etc/copas/copas.toml
  $XDG_CONFIG_HOME/copas/copas.toml
  path supplied via --config

All daemon flags can be set via COPAS_<KEY> env vars or config-file keys.
See "copas daemon --help" for the full flag reference.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newDaemonCmd(),
		newHistoryCmd(),
		newCopyCmd(),
		newPasteCmd(),
		newPinCmd(),
		newLabelCmd(),
		newMoveCmd(),
		newDeleteCmd(),
		newClearCmd(),
		newStatsCmd(),
		newTabsCmd(),
		newSettingsCmd(),
		newVaultCmd(),
		newPopupCmd(),
		newWatchCmd(),
		newStatusCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:     "version",
		Short:   "Print version information",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Printf("copas %s\n", Version)

			path := ipc.SocketPath(v.GetString(config.KeySocket))
			if !ipc.IsRunning(path) {
				return
			}
			c, err := service.Dial(path)
			if err != nil {
				return
			}
			defer c.Close()
			var dv message.Version
			if err := c.Call(cmd.Context(), message.OpGetVersion, nil, &dv); err == nil {
				fmt.Printf("daemon %s\n", dv.Version)
			}
		},
	}
	addSocketFlag(cmd)
	addConfigFlag(cmd)
	return cmd
}

// resolveLogging sets up the global slog logger after flags are parsed.
func resolveLogging(interactive bool, formatStr, levelStr string) {
	format := logging.ParseFormat(formatStr)
	level := logging.ParseLevel(levelStr)
	if levelStr == "" {
		if interactive {
			level = logging.ParseLevel("debug")
		} else {
			level = logging.ParseLevel("info")
		}
	}
	logging.Setup(format, level)
}
