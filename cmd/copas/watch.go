package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"go.klb.dev/copas/internal/hub"
	"go.klb.dev/copas/internal/service"
)

func newWatchCmd() *cobra.Command {
	names := make([]string, len(hub.EventTypes))
	for i, t := range hub.EventTypes {
		names[i] = string(t)
	}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream daemon events",
		Long: `Prints daemon events as they happen until interrupted.

Events: ` + strings.Join(names, ", ") + `

With -o json each event is one JSON object per line, suitable for a
frontend reading the stream.`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().StringSlice("accept", nil, "only these event types (default all)")

	return newClientCmd(cmd, func(ctx context.Context, c *service.Client, v *viper.Viper, _ []string) error {
		var emit func(hub.Event) error
		switch f := strings.ToLower(v.GetString("output")); f {
		case "", "text":
			emit = printEvent
		case "json":
			enc := json.NewEncoder(os.Stdout)
			emit = func(ev hub.Event) error { return enc.Encode(ev) }
		case "yaml", "yml":
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			emit = func(ev hub.Event) error { return enc.Encode(ev) }
		default:
			return fmt.Errorf("unknown output format %q (want text, json or yaml)", f)
		}
		return c.Watch(ctx, v.GetStringSlice("accept"), emit)
	})
}

func printEvent(ev hub.Event) error {
	ts := ev.Time.Local().Format("15:04:05.000")
	var detail string
	switch {
	case ev.Item != nil:
		detail = fmt.Sprintf("%s %s %s", ev.Item.ID, ev.Item.Category, preview(*ev.Item, 60))
	case ev.Settings != nil:
		detail = fmt.Sprintf("pollInterval=%d maxHistory=%d", ev.Settings.PollInterval, ev.Settings.MaxHistory)
	case ev.Reason != "":
		detail = ev.Reason
	}
	_, err := fmt.Printf("%s  %-18s %s\n", ts, ev.Type, detail)
	return err
}
