package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/copas/internal/message"
	"go.klb.dev/copas/internal/model"
	"go.klb.dev/copas/internal/service"
	"go.klb.dev/copas/internal/settings"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change daemon settings",
		Long: `Settings are stored with the history and apply immediately.

Keys: ` + strings.Join(settings.Keys, ", "),
	}

	get := newClientCmd(&cobra.Command{
		Use:   "get",
		Short: "Show settings",
		Args:  cobra.NoArgs,
	}, func(ctx context.Context, c *service.Client, v *viper.Viper, _ []string) error {
		var s model.Settings
		if err := c.Call(ctx, message.OpGetSettings, nil, &s); err != nil {
			return err
		}
		return render(v, s, func(w io.Writer) error { return writeSettings(w, s) })
	})

	set := newClientCmd(&cobra.Command{
		Use:   "set <key>=<value>...",
		Short: "Change settings",
		Example: `  copas settings set pollInterval=250 maxHistory=5000
  copas settings set pasteDelimiter=$'\n'`,
		Args: cobra.MinimumNArgs(1),
	}, func(ctx context.Context, c *service.Client, v *viper.Viper, args []string) error {
		kv := make(map[string]string, len(args))
		for _, arg := range args {
			k, val, ok := strings.Cut(arg, "=")
			if !ok || k == "" {
				return fmt.Errorf("expected key=value, got %q", arg)
			}
			kv[k] = val
		}
		p, err := settings.ParsePatch(kv)
		if err != nil {
			return err
		}
		var s model.Settings
		if err := persisted(c.Call(ctx, message.OpSetSettings, p, &s)); err != nil {
			return err
		}
		return render(v, s, func(w io.Writer) error { return writeSettings(w, s) })
	})

	cmd.AddCommand(get, set)
	return cmd
}

func writeSettings(w io.Writer, s model.Settings) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "pollInterval\t%d\n", s.PollInterval)
	fmt.Fprintf(tw, "maxHistory\t%d\n", s.MaxHistory)
	fmt.Fprintf(tw, "shortcutToggle\t%s\n", s.ShortcutToggle)
	fmt.Fprintf(tw, "shortcutPaste\t%s\n", s.ShortcutPaste)
	fmt.Fprintf(tw, "pasteDelimiter\t%q\n", s.PasteDelimiter)
	fmt.Fprintf(tw, "theme\t%s\n", s.Theme)
	fmt.Fprintf(tw, "showNotifications\t%t\n", s.ShowNotifications)
	fmt.Fprintf(tw, "autoStart\t%t\n", s.AutoStart)
	return tw.Flush()
}
