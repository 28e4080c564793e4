package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/copas/internal/message"
	"go.klb.dev/copas/internal/service"
)

func newPasteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paste [id...]",
		Short: "Paste history entries into the focused application",
		Long: `Writes the entries to the clipboard, hides the popup and sends a paste
keystroke to the application that had focus.

Several ids are joined with the configured paste delimiter. --text pastes
literal text instead. When no keystroke injector is available the content
stays on the clipboard and the command says so.`,
	}
	cmd.Flags().String("text", "", "paste this text instead of history entries")

	return newClientCmd(cmd, func(ctx context.Context, c *service.Client, v *viper.Viper, args []string) error {
		text := v.GetString("text")
		var (
			op string
			a  any
		)
		switch {
		case text != "" && len(args) > 0:
			return errors.New("--text and ids are mutually exclusive")
		case text != "":
			op, a = message.OpPasteAndHide, message.ContentArgs{Content: text}
		case len(args) > 0:
			items, err := lookup(ctx, c, args)
			if err != nil {
				return err
			}
			if op, a, err = contentRequest(items, message.OpPasteAndHide, message.OpBulkPasteAndHide); err != nil {
				return err
			}
		default:
			return errors.New("nothing to paste: give entry ids or --text")
		}

		var res message.PasteResult
		if err := c.Call(ctx, op, a, &res); err != nil {
			return err
		}
		return render(v, res, func(w io.Writer) error {
			if !res.Injected {
				fmt.Fprintln(os.Stderr, "copied to clipboard; paste injection is unavailable, paste manually")
			}
			return nil
		})
	})
}
