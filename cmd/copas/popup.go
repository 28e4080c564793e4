package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/copas/internal/message"
	"go.klb.dev/copas/internal/service"
)

// newPopupCmd controls the popup visibility state. A UI attached through
// "copas watch" follows the popup-shown and popup-hidden events.
func newPopupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "popup",
		Short: "Show, hide or toggle the popup",
		Long: `Changes the popup state held by the daemon. A frontend subscribed with
"copas watch" shows and hides its window in response. Bind "copas popup
toggle" to the global shortcut.`,
	}
	for _, sub := range []struct{ use, short, op string }{
		{"show", "Show the popup", message.OpShowPopup},
		{"hide", "Hide the popup", message.OpHidePopup},
		{"toggle", "Toggle the popup", message.OpTogglePopup},
		{"blur", "Report that the popup lost focus; it hides after a short delay", message.OpPopupBlur},
	} {
		cmd.AddCommand(newClientCmd(&cobra.Command{
			Use:   sub.use,
			Short: sub.short,
			Args:  cobra.NoArgs,
		}, func(ctx context.Context, c *service.Client, v *viper.Viper, _ []string) error {
			var vis message.Visible
			if err := c.Call(ctx, sub.op, nil, &vis); err != nil {
				return err
			}
			return render(v, vis, func(w io.Writer) error {
				state := "hidden"
				if vis.Visible {
					state = "visible"
				}
				_, err := fmt.Fprintln(w, state)
				return err
			})
		}))
	}
	return cmd
}
