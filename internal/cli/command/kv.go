package command

import (
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv-go/internal/cli/output"
	"github.com/yndnr/respkv-go/internal/protocol/frame"
)

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Get the value of a key",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("get needs exactly one KEY")
			}
			return runCommand(c, "GET", c.Args().First())
		},
	}
}

// SetCommand returns the set command.
func SetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Set a key, optionally with a time to live",
		ArgsUsage: "KEY VALUE",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "expire after this duration (e.g. 30s, 1500ms)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("set needs KEY and VALUE")
			}
			args := []string{"SET", c.Args().Get(0), c.Args().Get(1)}
			if ttl := c.Duration("ttl"); ttl > 0 {
				args = append(args, ttlArgs(ttl)...)
			} else if ttl < 0 {
				return fmt.Errorf("--ttl must be positive")
			}
			return runCommand(c, args...)
		},
	}
}

// ttlArgs uses EX for whole seconds and PX otherwise.
func ttlArgs(ttl time.Duration) []string {
	if ttl%time.Second == 0 {
		return []string{"EX", strconv.FormatInt(int64(ttl/time.Second), 10)}
	}
	ms := ttl.Milliseconds()
	if ms == 0 {
		ms = 1
	}
	return []string{"PX", strconv.FormatInt(ms, 10)}
}

// DelCommand returns the del command.
func DelCommand() *cli.Command {
	return &cli.Command{
		Name:      "del",
		Usage:     "Delete keys",
		ArgsUsage: "KEY [KEY...]",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("del needs at least one KEY")
			}
			return runCommand(c, append([]string{"DEL"}, c.Args().Slice()...)...)
		},
	}
}

// ExistsCommand returns the exists command.
func ExistsCommand() *cli.Command {
	return &cli.Command{
		Name:      "exists",
		Usage:     "Count how many of the keys exist",
		ArgsUsage: "KEY [KEY...]",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("exists needs at least one KEY")
			}
			return runCommand(c, append([]string{"EXISTS"}, c.Args().Slice()...)...)
		},
	}
}

// TTLCommand returns the ttl command.
func TTLCommand() *cli.Command {
	return &cli.Command{
		Name:      "ttl",
		Usage:     "Show the remaining time to live of a key in seconds",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("ttl needs exactly one KEY")
			}
			return runCommand(c, "TTL", c.Args().First())
		},
	}
}

// PingCommand returns the ping command.
func PingCommand() *cli.Command {
	return &cli.Command{
		Name:      "ping",
		Usage:     "Check the connection",
		ArgsUsage: "[MESSAGE]",
		Action: func(c *cli.Context) error {
			return runCommand(c, append([]string{"PING"}, c.Args().Slice()...)...)
		},
	}
}

// ExecCommand returns the exec command, which sends arbitrary arguments.
func ExecCommand() *cli.Command {
	return &cli.Command{
		Name:      "exec",
		Usage:     "Send a raw command",
		ArgsUsage: "COMMAND [ARG...]",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("exec needs a COMMAND")
			}
			return runCommand(c, c.Args().Slice()...)
		},
	}
}

// runCommand sends one command and prints the reply. An Error reply
// exits with status 1 after printing.
func runCommand(c *cli.Context, args ...string) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}
	client, err := Connect(c, flags)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := withTimeout(c, flags)
	defer cancel()

	reply, err := client.Do(ctx, args...)
	if err != nil {
		return err
	}
	if err := output.NewFormatter(flags.Output).Format(c.App.Writer, reply); err != nil {
		return err
	}
	if _, ok := reply.(frame.Error); ok {
		return cli.Exit("", 1)
	}
	return nil
}
