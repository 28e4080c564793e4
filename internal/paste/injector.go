package paste

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Command injects a paste by running an external program.
type Command struct {
	name string
	argv []string
}

// NewCommand returns an injector that runs argv.
func NewCommand(name string, argv ...string) *Command {
	return &Command{name: name, argv: argv}
}

func (c *Command) Name() string { return c.name }

func (c *Command) InjectPaste(ctx context.Context) error {
	out, err := exec.CommandContext(ctx, c.argv[0], c.argv[1:]...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %w: %s", c.name, err, msg)
		}
		return fmt.Errorf("%s: %w", c.name, err)
	}
	return nil
}

// Unavailable always fails with ErrInjectUnavailable.
type Unavailable struct {
	Reason string
}

func (u Unavailable) Name() string { return "none" }

func (u Unavailable) InjectPaste(context.Context) error {
	return fmt.Errorf("%w: %s", ErrInjectUnavailable, u.Reason)
}
