// Package repl is the interactive mode of respkv-cli.
//
// Each input line is split into arguments with double and single quotes
// honoured, sent to the server as one command and the reply printed with
// the configured formatter. Lines starting with a REPL keyword (help,
// history, exit, quit, clear) are handled locally. History is kept across
// sessions in a plain text file.
package repl
