package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv-go/internal/cli/config"
	"github.com/yndnr/respkv-go/internal/cli/connection"
	"github.com/yndnr/respkv-go/internal/cli/output"
	"github.com/yndnr/respkv-go/internal/infra/buildinfo"
	"github.com/yndnr/respkv-go/internal/infra/tlsroots"
)

const metaConfig = "cliConfig"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:                 "respkv-cli",
		Usage:                "command-line client for respkv-server",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			GetCommand(),
			SetCommand(),
			DelCommand(),
			ExistsCommand(),
			TTLCommand(),
			PingCommand(),
			ExecCommand(),
			PublishCommand(),
			SubscribeCommand(),
			BenchCommand(),
			REPLCommand(),
			ConfigCommand(),
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			if c.App.Metadata == nil {
				c.App.Metadata = make(map[string]any)
			}
			c.App.Metadata[metaConfig] = cfg
			return nil
		},
		Action: replAction,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "server address host:port (overrides the profile)",
			EnvVars: []string{"RESPKV_SERVER"},
		},
		&cli.StringFlag{
			Name:    "profile",
			Aliases: []string{"p"},
			Usage:   "connection profile from the CLI config",
			EnvVars: []string{"RESPKV_PROFILE"},
		},
		&cli.StringFlag{
			Name:    "config",
			Usage:   "CLI config file",
			Value:   config.DefaultConfigPath(),
			EnvVars: []string{"RESPKV_CLI_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: text, json, yaml",
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Aliases: []string{"t"},
			Usage:   "per-request timeout (0 uses the config value)",
		},
		&cli.BoolFlag{
			Name:  "tls",
			Usage: "connect with TLS",
		},
		&cli.StringFlag{
			Name:  "ca-file",
			Usage: "extra CA certificate to trust",
		},
		&cli.StringFlag{
			Name:  "cert-file",
			Usage: "client certificate for mutual TLS",
		},
		&cli.StringFlag{
			Name:  "key-file",
			Usage: "client key for mutual TLS",
		},
		&cli.StringFlag{
			Name:  "server-name",
			Usage: "name to verify in the server certificate",
		},
		&cli.BoolFlag{
			Name:  "insecure",
			Usage: "skip server certificate verification",
		},
	}
}

// GlobalFlags is the resolved connection and output settings.
type GlobalFlags struct {
	Profile config.Profile
	Output  output.Format
	Timeout time.Duration
}

// ParseGlobalFlags merges flags over the selected profile and the config
// defaults.
func ParseGlobalFlags(c *cli.Context) (*GlobalFlags, error) {
	cfg := CLIConfig(c)
	profile, err := cfg.Profile(c.String("profile"))
	if err != nil {
		return nil, err
	}
	if s := c.String("server"); s != "" {
		profile.Server = s
	}
	if c.Bool("tls") {
		profile.TLS = true
	}
	for flag, dst := range map[string]*string{
		"ca-file":     &profile.CAFile,
		"cert-file":   &profile.CertFile,
		"key-file":    &profile.KeyFile,
		"server-name": &profile.ServerName,
	} {
		if v := c.String(flag); v != "" {
			*dst = v
		}
	}
	if c.Bool("insecure") {
		profile.Insecure = true
	}

	formatName := c.String("output")
	if formatName == "" {
		formatName = cfg.DefaultOutput
	}
	format, err := output.ParseFormat(formatName)
	if err != nil {
		return nil, err
	}

	timeout := c.Duration("timeout")
	if timeout <= 0 {
		timeout = cfg.Timeout
	}
	return &GlobalFlags{Profile: profile, Output: format, Timeout: timeout}, nil
}

// CLIConfig returns the config loaded by the Before hook, or the defaults.
func CLIConfig(c *cli.Context) *config.CLIConfig {
	if cfg, ok := c.App.Metadata[metaConfig].(*config.CLIConfig); ok {
		return cfg
	}
	return config.Default()
}

// Connect dials the resolved server.
func Connect(c *cli.Context, flags *GlobalFlags) (*connection.Client, error) {
	opts, err := clientOptions(flags)
	if err != nil {
		return nil, err
	}
	return connection.Dial(c.Context, flags.Profile.Server, opts)
}

func clientOptions(flags *GlobalFlags) (connection.Options, error) {
	opts := connection.Options{DialTimeout: flags.Timeout, WriteTimeout: flags.Timeout}
	if !flags.Profile.TLS {
		return opts, nil
	}
	tlsCfg, err := tlsroots.ClientConfig(tlsroots.ClientOptions{
		CAFile:             flags.Profile.CAFile,
		CertFile:           flags.Profile.CertFile,
		KeyFile:            flags.Profile.KeyFile,
		ServerName:         flags.Profile.ServerName,
		InsecureSkipVerify: flags.Profile.Insecure,
	})
	if err != nil {
		return opts, err
	}
	opts.TLS = tlsCfg
	return opts, nil
}

// withTimeout derives the per-request context.
func withTimeout(c *cli.Context, flags *GlobalFlags) (context.Context, context.CancelFunc) {
	if flags.Timeout <= 0 {
		return context.WithCancel(c.Context)
	}
	return context.WithTimeout(c.Context, flags.Timeout)
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
