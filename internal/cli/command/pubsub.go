package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv-go/internal/cli/connection"
	"github.com/yndnr/respkv-go/internal/cli/output"
)

// PublishCommand returns the publish command.
func PublishCommand() *cli.Command {
	return &cli.Command{
		Name:      "publish",
		Aliases:   []string{"pub"},
		Usage:     "Publish a message to a channel",
		ArgsUsage: "CHANNEL MESSAGE",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("publish needs CHANNEL and MESSAGE")
			}
			return runCommand(c, "PUBLISH", c.Args().Get(0), c.Args().Get(1))
		},
	}
}

// SubscribeCommand returns the subscribe command.
func SubscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "subscribe",
		Aliases:   []string{"sub"},
		Usage:     "Print messages published to channels until interrupted",
		ArgsUsage: "CHANNEL [CHANNEL...]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "exit after this many messages (0 = no limit)",
			},
		},
		Action: subscribeAction,
	}
}

// messageView is how a message is printed.
type messageView struct {
	Channel string `json:"channel" yaml:"channel"`
	Message string `json:"message" yaml:"message"`
}

func subscribeAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("subscribe needs at least one CHANNEL")
	}
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}
	client, err := Connect(c, flags)
	if err != nil {
		return err
	}

	setup, cancel := withTimeout(c, flags)
	sub, err := client.Subscribe(setup, c.Args().Slice()...)
	cancel()
	if err != nil {
		client.Close()
		return err
	}
	defer sub.Close()

	var formatter output.Formatter
	switch flags.Output {
	case output.FormatJSON:
		formatter = &output.JSONFormatter{Compact: true}
	case output.FormatYAML:
		formatter = &output.YAMLFormatter{}
	}
	if formatter == nil {
		fmt.Fprintf(c.App.ErrWriter, "subscribed to %d channel(s), waiting for messages\n", sub.Count())
	}

	limit := c.Int("count")
	for received := 0; limit <= 0 || received < limit; received++ {
		msg, err := sub.Next(c.Context)
		if errors.Is(err, context.Canceled) || errors.Is(err, connection.ErrDisconnected) {
			return nil
		}
		if err != nil {
			return err
		}
		if formatter == nil {
			fmt.Fprintf(c.App.Writer, "%s: %s\n", msg.Channel, msg.Payload)
			continue
		}
		if flags.Output == output.FormatYAML {
			fmt.Fprintln(c.App.Writer, "---")
		}
		if err := formatter.Format(c.App.Writer, messageView{Channel: msg.Channel, Message: string(msg.Payload)}); err != nil {
			return err
		}
	}
	return nil
}
