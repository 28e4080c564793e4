package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"go.klb.dev/copas/internal/config"
	"go.klb.dev/copas/internal/logging"
)

// flagKeys maps config keys to the flag that overrides them. Flags not
// listed bind under their own name.
var flagKeys = map[string]string{
	config.KeyDataDir:     "data-dir",
	config.KeySocket:      "socket",
	config.KeyLogLevel:    "log-level",
	config.KeyLogFormat:   "log-format",
	config.KeyStorageType: "storage",
	config.KeyPasteDelay:  "paste-delay",
	config.KeyHeadless:    "headless",
}

// bindViper wires a command's flags into a viper instance with the standard
// config file search order and COPAS_* env var prefix.
//
// Precedence (lowest → highest): defaults → config file → COPAS_* env vars → flags
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	configFlag, _ := cmd.Flags().GetString("config")
	if configFlag != "" {
		v.SetConfigFile(configFlag)
	} else {
		v.SetConfigName(config.Name)
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/copas/")
		v.AddConfigPath(config.Dir())
	}
	config.SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix("COPAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// A mapped flag is bound only under its config key. Binding it under
	// its own name too would let "storage" shadow the [storage] table.
	mapped := make(map[string]string, len(flagKeys))
	for key, name := range flagKeys {
		mapped[name] = key
	}
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := mapped[f.Name]
		if !ok {
			key = f.Name
		}
		if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
			bindErr = fmt.Errorf("binding --%s: %w", f.Name, err)
		}
	})
	return bindErr
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-background", false, "run interactively: tinter logs + debug level")
	cmd.Flags().String("log-format", "auto", "log format: auto|text|json")
	cmd.Flags().String("log-level", "", "log level: debug|info|warn|error (default: info for the daemon, debug for interactive)")
}

// addConfigFlag adds the --config flag to a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
}

// addSocketFlag adds the --socket flag to a command.
func addSocketFlag(cmd *cobra.Command) {
	cmd.Flags().String("socket", "", "daemon socket path (default: $COPAS_SOCKET or the per-user runtime dir)")
}

// setupLogging reads logging flags from viper and configures slog.
func setupLogging(v *viper.Viper) {
	interactive := v.GetBool("no-background") || logging.IsTTY(os.Stderr)
	resolveLogging(interactive, v.GetString(config.KeyLogFormat), v.GetString(config.KeyLogLevel))
}

// setupClientLogging keeps CLI tools quiet unless a level is configured.
func setupClientLogging(v *viper.Viper) {
	level := slog.LevelWarn
	if s := v.GetString(config.KeyLogLevel); s != "" {
		level = logging.ParseLevel(s)
	}
	logging.Setup(logging.ParseFormat(v.GetString(config.KeyLogFormat)), level)
}
