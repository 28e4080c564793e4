package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"go.klb.dev/copas/internal/history"
	"go.klb.dev/copas/internal/message"
	"go.klb.dev/copas/internal/service"
)

func newVaultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Manage the PIN-protected vault",
		Long: `Vault entries are hidden from history and only listed while the vault is
unlocked. The daemon keeps the vault unlocked until "copas vault lock" or a
restart.

PINs are read from the terminal without echo, or from the first line of
stdin when it is not a terminal.`,
	}

	setPin := newClientCmd(&cobra.Command{
		Use:   "set-pin",
		Short: "Set or change the vault PIN",
		Long:  `Sets the first PIN, or changes it while the vault is unlocked.`,
		Args:  cobra.NoArgs,
	}, func(ctx context.Context, c *service.Client, v *viper.Viper, _ []string) error {
		p, err := readPIN("New PIN: ")
		if err != nil {
			return err
		}
		if term.IsTerminal(int(os.Stdin.Fd())) {
			again, err := readPIN("Repeat PIN: ")
			if err != nil {
				return err
			}
			if again != p {
				return fmt.Errorf("PINs do not match")
			}
		}
		return applied(ctx, c, v, message.OpSetVaultPin, message.PINArgs{PIN: p}, "PIN not set")
	})

	unlock := newClientCmd(&cobra.Command{
		Use:   "unlock",
		Short: "Unlock the vault",
		Args:  cobra.NoArgs,
	}, func(ctx context.Context, c *service.Client, v *viper.Viper, _ []string) error {
		p, err := readPIN("PIN: ")
		if err != nil {
			return err
		}
		var ok message.Valid
		if err := c.Call(ctx, message.OpVerifyVaultPin, message.PINArgs{PIN: p}, &ok); err != nil {
			return err
		}
		if !ok.Valid {
			return fmt.Errorf("wrong PIN")
		}
		return render(v, ok, func(w io.Writer) error {
			_, err := fmt.Fprintln(w, "vault unlocked")
			return err
		})
	})

	lock := newClientCmd(&cobra.Command{
		Use:   "lock",
		Short: "Lock the vault",
		Args:  cobra.NoArgs,
	}, func(ctx context.Context, c *service.Client, v *viper.Viper, _ []string) error {
		return applied(ctx, c, v, message.OpLockVault, nil, "vault not locked")
	})

	add := newClientCmd(&cobra.Command{
		Use:   "add <id>",
		Short: "Move a history entry into the vault",
		Args:  cobra.ExactArgs(1),
	}, func(ctx context.Context, c *service.Client, v *viper.Viper, args []string) error {
		return applied(ctx, c, v, message.OpMoveToVault, message.IDArgs{ID: args[0]}, "no entry with id %q", args[0])
	})

	remove := newClientCmd(&cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Move a vault entry back into history",
		Args:    cobra.ExactArgs(1),
	}, func(ctx context.Context, c *service.Client, v *viper.Viper, args []string) error {
		return applied(ctx, c, v, message.OpRemoveFromVault, message.IDArgs{ID: args[0]}, "no vault entry with id %q", args[0])
	})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List vault entries",
		Args:  cobra.NoArgs,
	}
	listCmd.Flags().StringP("search", "s", "", "case-insensitive substring of content or label")
	listCmd.Flags().Int("page", 1, "page number (1-based)")
	listCmd.Flags().Int("page-size", 50, "entries per page")
	listCmd.Flags().Int("width", 60, "preview width in text output")
	list := newClientCmd(listCmd, func(ctx context.Context, c *service.Client, v *viper.Viper, _ []string) error {
		var p history.Page
		err := c.Call(ctx, message.OpGetVaultItems, message.HistoryArgs{
			Search:   v.GetString("search"),
			Page:     v.GetInt("page"),
			PageSize: v.GetInt("page-size"),
		}, &p)
		if err != nil {
			return err
		}
		return render(v, p, func(w io.Writer) error { return writePage(w, p, v.GetInt("width")) })
	})

	status := newClientCmd(&cobra.Command{
		Use:   "status",
		Short: "Show whether a PIN is set and the vault is unlocked",
		Args:  cobra.NoArgs,
	}, func(ctx context.Context, c *service.Client, v *viper.Viper, _ []string) error {
		var h message.HasPin
		if err := c.Call(ctx, message.OpHasVaultPin, nil, &h); err != nil {
			return err
		}
		return render(v, h, func(w io.Writer) error {
			switch {
			case !h.HasPin:
				_, err := fmt.Fprintln(w, "no PIN set")
				return err
			case h.Unlocked:
				_, err := fmt.Fprintln(w, "unlocked")
				return err
			default:
				_, err := fmt.Fprintln(w, "locked")
				return err
			}
		})
	})

	cmd.AddCommand(setPin, unlock, lock, add, remove, list, status)
	return cmd
}

var stdinLines *bufio.Reader

// readPIN prompts on stderr and reads a PIN without echo from a terminal,
// or one line from piped stdin.
func readPIN(prompt string) (string, error) {
	fd := os.Stdin.Fd()
	if isatty.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(int(fd))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read PIN: %w", err)
		}
		return string(b), nil
	}
	if stdinLines == nil {
		stdinLines = bufio.NewReader(os.Stdin)
	}
	line, err := stdinLines.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read PIN: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
