// Package command defines the respkv-cli commands on urfave/cli/v2.
//
// Every data command dials the server named by --server, --profile or the
// CLI config file, runs one request and prints the reply in the format
// chosen by --output. Without a subcommand the CLI starts the REPL.
package command
