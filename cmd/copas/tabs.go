package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/copas/internal/message"
	"go.klb.dev/copas/internal/model"
	"go.klb.dev/copas/internal/service"
)

func newTabsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tabs",
		Short: "Manage history tabs",
		Long: `Tabs group history entries. "all" and "links" are built-in views and
cannot be renamed or deleted.`,
	}

	list := newClientCmd(&cobra.Command{
		Use:   "list",
		Short: "List tabs",
		Args:  cobra.NoArgs,
	}, func(ctx context.Context, c *service.Client, v *viper.Viper, _ []string) error {
		var tabs []model.Tab
		if err := c.Call(ctx, message.OpGetTabs, nil, &tabs); err != nil {
			return err
		}
		return render(v, tabs, func(w io.Writer) error {
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tICON\tSYSTEM")
			for _, t := range tabs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", t.ID, t.Name, t.Icon, t.System)
			}
			return tw.Flush()
		})
	})

	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a tab",
		Args:  cobra.ExactArgs(1),
	}
	createCmd.Flags().String("icon", "", "tab icon")
	create := newClientCmd(createCmd, func(ctx context.Context, c *service.Client, v *viper.Viper, args []string) error {
		var t model.Tab
		if err := persisted(c.Call(ctx, message.OpCreateTab, message.TabArgs{Name: args[0], Icon: v.GetString("icon")}, &t)); err != nil {
			return err
		}
		return render(v, t, func(w io.Writer) error {
			_, err := fmt.Fprintln(w, t.ID)
			return err
		})
	})

	renameCmd := &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a tab",
		Args:  cobra.ExactArgs(2),
	}
	renameCmd.Flags().String("icon", "", "new tab icon (unchanged when empty)")
	rename := newClientCmd(renameCmd, func(ctx context.Context, c *service.Client, v *viper.Viper, args []string) error {
		a := message.TabArgs{ID: args[0], Name: args[1], Icon: v.GetString("icon")}
		return applied(ctx, c, v, message.OpRenameTab, a, "no tab with id %q", args[0])
	})

	del := newClientCmd(&cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a tab; its entries move back to the main history",
		Args:    cobra.ExactArgs(1),
	}, func(ctx context.Context, c *service.Client, v *viper.Viper, args []string) error {
		return applied(ctx, c, v, message.OpDeleteTab, message.IDArgs{ID: args[0]}, "no tab with id %q", args[0])
	})

	cmd.AddCommand(list, create, rename, del)
	return cmd
}
