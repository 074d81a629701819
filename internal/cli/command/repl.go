package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv-go/internal/cli/output"
	"github.com/yndnr/respkv-go/internal/cli/repl"
	"github.com/yndnr/respkv-go/internal/infra/confloader"
)

// REPLCommand returns the repl command.
func REPLCommand() *cli.Command {
	return &cli.Command{
		Name:   "repl",
		Usage:  "Start interactive mode (the default without a command)",
		Action: replAction,
	}
}

func replAction(c *cli.Context) error {
	if c.NArg() > 0 {
		return fmt.Errorf("unknown command %q, see --help", c.Args().First())
	}
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}
	client, err := Connect(c, flags)
	if err != nil {
		return err
	}
	defer client.Close()

	history := repl.NewHistory(confloader.ExpandHome(CLIConfig(c).HistoryFile), repl.DefaultHistorySize)
	if err := history.Load(); err != nil {
		PrintError("load history: %v", err)
	}
	defer func() {
		if err := history.Save(); err != nil {
			PrintError("save history: %v", err)
		}
	}()

	r := repl.New(client,
		repl.WithIO(c.App.Reader, c.App.Writer),
		repl.WithHistory(history),
		repl.WithFormatter(output.NewFormatter(flags.Output)),
		repl.WithPrompt(client.Addr()+"> "),
		repl.WithTimeout(flags.Timeout),
	)
	return r.Run(c.Context)
}
