package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/copas/internal/clip"
	"go.klb.dev/copas/internal/config"
	"go.klb.dev/copas/internal/ipc"
	"go.klb.dev/copas/internal/logging"
	"go.klb.dev/copas/internal/paste"
	"go.klb.dev/copas/internal/service"
)

func newDaemonCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the clipboard watcher and history service",
		Long: `Starts the copas daemon. It polls the system clipboard, records every new
value, and serves the history to copas commands and popup clients over a
local socket.

Config file search order:
  /etc/copas/copas.toml
  $XDG_CONFIG_HOME/copas/copas.toml
  path supplied via --config

Precedence (lowest → highest): defaults → config file → COPAS_* env vars → flags

Log level and paste delay are re-read when the config file changes.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runDaemon(cmd, v) },
	}

	f := cmd.Flags()
	f.String("data-dir", config.DefaultDataDir(), "directory for history state and images")
	f.String("storage", "json", "state storage: json|sqlite")
	f.Duration("paste-delay", paste.DefaultDelay, "pause between hiding the popup and injecting the paste keystroke")
	f.Bool("headless", false, "fall back to an in-memory clipboard when the system clipboard is unavailable")
	addSocketFlag(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runDaemon(cmd *cobra.Command, v *viper.Viper) error {
	setupLogging(v)

	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}

	slog.Info("copas daemon starting",
		"version", Version,
		"config", v.ConfigFileUsed(),
		"data_dir", cfg.DataDir,
		"storage", cfg.Storage.Type,
		"log_level", logging.Level(),
	)

	backend, err := clip.New(cfg.Clipboard.Headless)
	if err != nil {
		return fmt.Errorf("%w (use --headless to run without one)", err)
	}

	ctx := cmd.Context()
	svc, err := service.Open(ctx, service.Options{
		DataDir:    cfg.DataDir,
		Storage:    cfg.Storage.Type,
		Backend:    backend,
		PasteDelay: cfg.Paste.Delay.Duration,
		Version:    Version,
	})
	if err != nil {
		backend.Close()
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			slog.Warn("shutdown", "err", err)
		}
	}()

	path := ipc.SocketPath(cfg.Socket)
	ln, err := ipc.Listen(path)
	if errors.Is(err, ipc.ErrAlreadyRunning) {
		return fmt.Errorf("%w at %s", err, path)
	}
	if err != nil {
		return fmt.Errorf("listen %s: %w", path, err)
	}
	slog.Info("IPC socket listening", "path", path)

	if v.ConfigFileUsed() != "" {
		v.OnConfigChange(func(e fsnotify.Event) { reloadConfig(v, svc, e) })
		v.WatchConfig()
	}

	svc.Start()
	err = svc.Serve(ctx, ln)
	slog.Info("copas daemon stopping")
	return err
}

// reloadConfig applies the settings that can change without a restart.
func reloadConfig(v *viper.Viper, svc *service.Service, e fsnotify.Event) {
	slog.Info("config file changed", "file", e.Name, "op", e.Op.String())
	cfg, err := config.FromViper(v)
	if err != nil {
		slog.Warn("ignoring invalid config change", "err", err)
		return
	}
	if cfg.LogLevel != "" {
		logging.SetLevel(logging.ParseLevel(cfg.LogLevel))
	}
	svc.SetPasteDelay(cfg.Paste.Delay.Duration)
}
