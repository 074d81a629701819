package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv-go/internal/cli/config"
	"github.com/yndnr/respkv-go/internal/cli/output"
	"github.com/yndnr/respkv-go/internal/infra/confloader"
	serverconfig "github.com/yndnr/respkv-go/internal/server/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the CLI configuration",
				Action: configShow,
			},
			{
				Name:      "set-profile",
				Usage:     "Create or replace a connection profile",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "server", Usage: "server address host:port", Required: true},
					&cli.BoolFlag{Name: "tls", Usage: "connect with TLS"},
					&cli.StringFlag{Name: "ca-file", Usage: "extra CA certificate to trust"},
					&cli.StringFlag{Name: "cert-file", Usage: "client certificate"},
					&cli.StringFlag{Name: "key-file", Usage: "client key"},
					&cli.StringFlag{Name: "server-name", Usage: "name to verify in the server certificate"},
					&cli.BoolFlag{Name: "insecure", Usage: "skip server certificate verification"},
				},
				Action: configSetProfile,
			},
			{
				Name:      "use",
				Usage:     "Select the default profile (empty NAME clears it)",
				ArgsUsage: "[NAME]",
				Action:    configUse,
			},
			{
				Name:      "check-server",
				Usage:     "Validate a respkv-server configuration file",
				ArgsUsage: "FILE",
				Action:    configCheckServer,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}
	cfg := CLIConfig(c)
	if flags.Output == output.FormatText {
		fmt.Fprintf(c.App.Writer, "# %s\n", c.String("config"))
		return (&output.YAMLFormatter{}).Format(c.App.Writer, cfg)
	}
	return output.NewFormatter(flags.Output).Format(c.App.Writer, cfg)
}

func configSetProfile(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("profile NAME required")
	}
	cfg := CLIConfig(c)
	cfg.Profiles[name] = config.Profile{
		Server:     c.String("server"),
		TLS:        c.Bool("tls"),
		CAFile:     c.String("ca-file"),
		CertFile:   c.String("cert-file"),
		KeyFile:    c.String("key-file"),
		ServerName: c.String("server-name"),
		Insecure:   c.Bool("insecure"),
	}
	if err := config.Save(cfg, c.String("config")); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "profile %q saved\n", name)
	return nil
}

func configUse(c *cli.Context) error {
	name := c.Args().First()
	cfg := CLIConfig(c)
	if name != "" {
		if _, ok := cfg.Profiles[name]; !ok {
			return fmt.Errorf("%w: %q", config.ErrUnknownProfile, name)
		}
	}
	cfg.CurrentProfile = name
	if err := config.Save(cfg, c.String("config")); err != nil {
		return err
	}
	if name == "" {
		fmt.Fprintln(c.App.Writer, "default profile cleared")
	} else {
		fmt.Fprintf(c.App.Writer, "using profile %q\n", name)
	}
	return nil
}

// configCheckServer loads FILE the way respkv-server does, environment
// overrides included, and runs the same validation.
func configCheckServer(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("FILE required")
	}
	cfg := serverconfig.Default()
	loader := confloader.NewLoader(confloader.WithConfigFile(confloader.ExpandHome(path)))
	if err := loader.Load(cfg); err != nil {
		return err
	}
	if err := serverconfig.Verify(cfg); err != nil {
		fmt.Fprintf(c.App.Writer, "%s: invalid\n%v\n", path, err)
		return cli.Exit("", 1)
	}
	fmt.Fprintf(c.App.Writer, "%s: ok\n", path)
	return nil
}
