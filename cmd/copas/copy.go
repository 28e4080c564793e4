package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/copas/internal/message"
	"go.klb.dev/copas/internal/model"
	"go.klb.dev/copas/internal/service"
)

func newCopyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "copy [text...]",
		Short: "Put text or history entries on the clipboard",
		Long: `Writes to the system clipboard through the daemon.

With arguments the text is their space-joined value; without, stdin is read
(like pbcopy). With --id the content of history entries is copied instead;
several entries are joined with the configured paste delimiter.`,
	}
	cmd.Flags().StringSlice("id", nil, "history entry id (repeatable)")

	return newClientCmd(cmd, func(ctx context.Context, c *service.Client, v *viper.Viper, args []string) error {
		ids := v.GetStringSlice("id")
		if len(ids) > 0 && len(args) > 0 {
			return errors.New("--id and text arguments are mutually exclusive")
		}

		var (
			op string
			a  any
		)
		switch {
		case len(ids) > 0:
			items, err := lookup(ctx, c, ids)
			if err != nil {
				return err
			}
			op, a, err = contentRequest(items, message.OpCopyToClipboard, message.OpBulkCopy)
			if err != nil {
				return err
			}
		case len(args) > 0:
			op, a = message.OpCopyToClipboard, message.ContentArgs{Content: strings.Join(args, " ")}
		default:
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			if len(data) == 0 {
				return nil
			}
			op, a = message.OpCopyToClipboard, message.ContentArgs{Content: string(data)}
		}

		var res message.Applied
		return c.Call(ctx, op, a, &res)
	})
}

// contentRequest builds the single or bulk form of a clipboard operation
// for items. Images can only be sent alone.
func contentRequest(items []model.ClipItem, single, bulk string) (string, any, error) {
	if len(items) == 1 {
		it := items[0]
		if it.Kind == model.KindImage {
			return single, message.ContentArgs{ImagePath: it.ImagePath}, nil
		}
		return single, message.ContentArgs{Content: it.ContentText}, nil
	}
	contents := make([]string, 0, len(items))
	for _, it := range items {
		if it.Kind == model.KindImage {
			return "", nil, fmt.Errorf("entry %s is an image; images cannot be combined", it.ID)
		}
		contents = append(contents, it.ContentText)
	}
	return bulk, message.ContentsArgs{Contents: contents}, nil
}
