package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/copas/internal/message"
	"go.klb.dev/copas/internal/service"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Long: `Displays the running daemon's configuration, clipboard backend, history
counts and the clients currently watching events.`,
		Args: cobra.NoArgs,
	}
	return newClientCmd(cmd, func(ctx context.Context, c *service.Client, v *viper.Viper, _ []string) error {
		var st service.Status
		if err := c.Call(ctx, message.OpStatus, nil, &st); err != nil {
			return err
		}
		return render(v, st, func(w io.Writer) error { return writeStatus(w, st) })
	})
}

func writeStatus(w io.Writer, st service.Status) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Version:\t%s\n", st.Version)
	fmt.Fprintf(tw, "PID:\t%d\n", st.PID)
	fmt.Fprintf(tw, "Uptime:\t%s\n", time.Since(st.Started).Round(time.Second))
	fmt.Fprintf(tw, "Data dir:\t%s\n", st.DataDir)
	fmt.Fprintf(tw, "Storage:\t%s (%s)\n", st.Storage, fmtBytes(st.Stats.StorageSize))
	fmt.Fprintf(tw, "Clipboard:\t%s\n", st.Clipboard)
	fmt.Fprintf(tw, "Injector:\t%s\n", st.Injector)
	fmt.Fprintf(tw, "Watching:\t%t (every %s)\n", st.Watching, st.PollInterval)
	fmt.Fprintf(tw, "Paste delay:\t%s\n", st.PasteDelay)
	fmt.Fprintf(tw, "Popup:\t%s\n", map[bool]string{true: "visible", false: "hidden"}[st.PopupVisible])
	fmt.Fprintf(tw, "Vault:\t%s\n", map[bool]string{true: "unlocked", false: "locked"}[st.VaultUnlocked])
	fmt.Fprintf(tw, "Entries:\t%d (%d pinned, %d in vault)\n", st.Stats.TotalItems, st.Stats.PinnedItems, st.Stats.VaultItems)
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(st.Subscribers) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBSCRIBER\tSOURCE\tACCEPTS\tCONNECTED")
	for _, s := range st.Subscribers {
		accepts := "all"
		if len(s.Accepts) > 0 {
			accepts = fmt.Sprint(s.Accepts)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, s.Source, accepts, fmtAge(s.ConnectedAt))
	}
	return tw.Flush()
}
