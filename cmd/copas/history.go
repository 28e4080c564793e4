package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/copas/internal/history"
	"go.klb.dev/copas/internal/message"
	"go.klb.dev/copas/internal/model"
	"go.klb.dev/copas/internal/service"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"ls"},
		Short:   "List clipboard history",
		Long: `Lists history entries newest first, pinned entries on top.

--tab accepts a tab id; "all" and "links" are built-in views.`,
		Args: cobra.NoArgs,
	}
	f := cmd.Flags()
	f.StringP("search", "s", "", "case-insensitive substring of content or label")
	f.StringP("tab", "t", "", "tab id to list")
	f.Int("page", 1, "page number (1-based)")
	f.Int("page-size", 50, "entries per page")
	f.Int("width", 60, "preview width in text output")

	return newClientCmd(cmd, func(ctx context.Context, c *service.Client, v *viper.Viper, _ []string) error {
		var p history.Page
		err := c.Call(ctx, message.OpGetHistory, message.HistoryArgs{
			Search:   v.GetString("search"),
			TabID:    v.GetString("tab"),
			Page:     v.GetInt("page"),
			PageSize: v.GetInt("page-size"),
		}, &p)
		if err != nil {
			return err
		}
		return render(v, p, func(w io.Writer) error { return writePage(w, p, v.GetInt("width")) })
	})
}

// writePage prints p as a table.
func writePage(w io.Writer, p history.Page, width int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tCATEGORY\tFLAGS\tAGE\tCONTENT")
	for _, it := range p.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			it.ID, it.Kind, it.Category, flags(it), fmtAge(it.Timestamp), preview(it, width))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if shown := len(p.Items); shown < p.Total {
		first := (p.Page-1)*p.PageSize + 1
		fmt.Fprintf(w, "\n%d-%d of %d\n", first, first+shown-1, p.Total)
	}
	return nil
}

func flags(it model.ClipItem) string {
	var b strings.Builder
	if it.Pinned {
		b.WriteString("P")
	}
	if it.InVault {
		b.WriteString("V")
	}
	if it.TabID != nil {
		b.WriteString("T")
	}
	if b.Len() == 0 {
		return "-"
	}
	return b.String()
}

func preview(it model.ClipItem, width int) string {
	s := it.ContentText
	if it.Kind == model.KindImage {
		s = "[image] " + it.ImagePath
	}
	if it.Label != "" {
		s = "(" + it.Label + ") " + s
	}
	return oneLine(s, max(width, 8))
}

func newPinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pin <id>",
		Short: "Toggle the pinned state of an entry",
		Long:  `Pinned entries sort first and are never evicted when history is full.`,
		Args:  cobra.ExactArgs(1),
	}
	return newClientCmd(cmd, func(ctx context.Context, c *service.Client, v *viper.Viper, args []string) error {
		var res message.PinResult
		if err := persisted(c.Call(ctx, message.OpPinItem, message.IDArgs{ID: args[0]}, &res)); err != nil {
			return err
		}
		if !res.Applied {
			return fmt.Errorf("no entry with id %q", args[0])
		}
		return render(v, res, func(w io.Writer) error {
			state := "unpinned"
			if res.Pinned {
				state = "pinned"
			}
			_, err := fmt.Fprintf(w, "%s %s\n", args[0], state)
			return err
		})
	})
}

func newLabelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "label <id> [label]",
		Short: "Set or clear an entry's label",
		Long:  `Sets the label of an entry. Omitting the label clears it.`,
		Args:  cobra.RangeArgs(1, 2),
	}
	return newClientCmd(cmd, func(ctx context.Context, c *service.Client, v *viper.Viper, args []string) error {
		a := message.LabelArgs{ID: args[0]}
		if len(args) == 2 {
			a.Label = args[1]
		}
		return applied(ctx, c, v, message.OpLabelItem, a, "no entry with id %q", args[0])
	})
}

func newMoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <id> [tab-id]",
		Short: "Assign an entry to a tab",
		Long: `Assigns an entry to a user tab. Omitting the tab id, or passing "all",
removes the assignment.`,
		Args: cobra.RangeArgs(1, 2),
	}
	return newClientCmd(cmd, func(ctx context.Context, c *service.Client, v *viper.Viper, args []string) error {
		a := message.MoveArgs{ItemID: args[0]}
		if len(args) == 2 && args[1] != model.TabAll {
			a.TabID = args[1]
		}
		return applied(ctx, c, v, message.OpMoveToTab, a, "no entry %q or no tab %q", args[0], a.TabID)
	})
}

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete history entries",
		Args:    cobra.MinimumNArgs(1),
	}
	return newClientCmd(cmd, func(ctx context.Context, c *service.Client, v *viper.Viper, args []string) error {
		if len(args) == 1 {
			return applied(ctx, c, v, message.OpDeleteItem, message.IDArgs{ID: args[0]}, "no entry with id %q", args[0])
		}
		var n message.Count
		if err := persisted(c.Call(ctx, message.OpDeleteMultiple, message.IDsArgs{IDs: args}, &n)); err != nil {
			return err
		}
		return render(v, n, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "deleted %d of %d\n", n.Count, len(args))
			return err
		})
	})
}

func newClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every unpinned entry",
		Long: `Deletes every unpinned history entry, or only those in one tab with --tab.
Pinned entries and vault entries are kept.`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().StringP("tab", "t", "", "only clear entries assigned to this tab")
	return newClientCmd(cmd, func(ctx context.Context, c *service.Client, v *viper.Viper, _ []string) error {
		var n message.Count
		if err := persisted(c.Call(ctx, message.OpClearHistory, message.ClearArgs{TabID: v.GetString("tab")}, &n)); err != nil {
			return err
		}
		return render(v, n, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "removed %d entries\n", n.Count)
			return err
		})
	})
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show history counts and storage size",
		Args:  cobra.NoArgs,
	}
	return newClientCmd(cmd, func(ctx context.Context, c *service.Client, v *viper.Viper, _ []string) error {
		var st history.Stats
		if err := c.Call(ctx, message.OpGetStats, nil, &st); err != nil {
			return err
		}
		return render(v, st, func(w io.Writer) error { return writeStats(w, st) })
	})
}

func writeStats(w io.Writer, st history.Stats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Entries:\t%d\n", st.TotalItems)
	fmt.Fprintf(tw, "Pinned:\t%d\n", st.PinnedItems)
	fmt.Fprintf(tw, "Vault:\t%d\n", st.VaultItems)
	fmt.Fprintf(tw, "Storage:\t%s\n", fmtBytes(st.StorageSize))
	return tw.Flush()
}

// applied runs an operation answering message.Applied and turns a false
// result into an error built from notFound.
func applied(ctx context.Context, c *service.Client, v *viper.Viper, op string, args any, notFound string, a ...any) error {
	var res message.Applied
	if err := persisted(c.Call(ctx, op, args, &res)); err != nil {
		return err
	}
	if !res.Applied {
		return fmt.Errorf(notFound, a...)
	}
	return render(v, res, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, "ok")
		return err
	})
}
