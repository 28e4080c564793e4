package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"go.klb.dev/copas/internal/config"
	"go.klb.dev/copas/internal/history"
	"go.klb.dev/copas/internal/ipc"
	"go.klb.dev/copas/internal/message"
	"go.klb.dev/copas/internal/model"
	"go.klb.dev/copas/internal/service"
)

// clientRunner is the body of a command that talks to the daemon.
type clientRunner func(ctx context.Context, c *service.Client, v *viper.Viper, args []string) error

// newClientCmd completes cmd with the shared client flags and a RunE that
// connects to the daemon before calling run.
func newClientCmd(cmd *cobra.Command, run clientRunner) *cobra.Command {
	v := viper.New()
	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) }
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		setupClientLogging(v)
		c, err := connect(v)
		if err != nil {
			return err
		}
		defer c.Close()
		return run(cmd.Context(), c, v, args)
	}
	addOutputFlag(cmd)
	addSocketFlag(cmd)
	addConfigFlag(cmd)
	return cmd
}

func connect(v *viper.Viper) (*service.Client, error) {
	path := ipc.SocketPath(v.GetString(config.KeySocket))
	c, err := service.Dial(path)
	if err != nil {
		return nil, fmt.Errorf("%w (is \"copas daemon\" running?)", err)
	}
	return c, nil
}

// addOutputFlag adds --output to a command.
func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "text", "output format: text|json|yaml")
}

// render writes data to stdout in the format chosen by --output. text
// produces the human format.
func render(v *viper.Viper, data any, text func(w io.Writer) error) error {
	return renderTo(os.Stdout, v.GetString("output"), data, text)
}

func renderTo(w io.Writer, format string, data any, text func(w io.Writer) error) error {
	switch f := strings.ToLower(format); f {
	case "", "text":
		return text(w)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", f)
	}
}

// persisted treats a persist error as a warning: the daemon applied the
// change but could not save it.
func persisted(err error) error {
	var re *message.RemoteError
	if errors.As(err, &re) && re.Code == message.CodePersist {
		fmt.Fprintf(os.Stderr, "warning: change applied but not saved: %s\n", re.Message)
		return nil
	}
	return err
}

// eachPage walks every page of a listing operation.
func eachPage(ctx context.Context, c *service.Client, op string, args message.HistoryArgs, fn func(history.Page) bool) error {
	args.PageSize = history.DefaultPageSize
	for args.Page = 1; ; args.Page++ {
		var p history.Page
		if err := c.Call(ctx, op, args, &p); err != nil {
			return err
		}
		if !fn(p) || args.Page*p.PageSize >= p.Total {
			return nil
		}
	}
}

// lookup resolves entry ids, searching the vault too when it is unlocked.
// The result keeps the order of ids.
func lookup(ctx context.Context, c *service.Client, ids []string) ([]model.ClipItem, error) {
	found := make(map[string]model.ClipItem, len(ids))
	for _, id := range ids {
		found[id] = model.ClipItem{}
	}
	missing := len(found)
	collect := func(p history.Page) bool {
		for _, it := range p.Items {
			if cur, ok := found[it.ID]; ok && cur.ID == "" {
				found[it.ID] = it
				missing--
			}
		}
		return missing > 0
	}

	if err := eachPage(ctx, c, message.OpGetHistory, message.HistoryArgs{}, collect); err != nil {
		return nil, err
	}
	if missing > 0 {
		var has message.HasPin
		if err := c.Call(ctx, message.OpHasVaultPin, nil, &has); err != nil {
			return nil, err
		}
		if has.Unlocked {
			if err := eachPage(ctx, c, message.OpGetVaultItems, message.HistoryArgs{}, collect); err != nil {
				return nil, err
			}
		}
	}

	out := make([]model.ClipItem, 0, len(ids))
	for _, id := range ids {
		it := found[id]
		if it.ID == "" {
			return nil, fmt.Errorf("no entry with id %q", id)
		}
		out = append(out, it)
	}
	return out, nil
}

// oneLine flattens s for table output and cuts it to n runes.
func oneLine(s string, n int) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func fmtAge(t time.Time) string {
	age := time.Since(t).Round(time.Second)
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	}
	return t.Local().Format("2006-01-02 15:04")
}

func fmtBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
