// Package output renders replies and reports for respkv-cli.
//
// Replies are frame.Frame values. The text format prints them the way
// interactive Redis clients do: quoted strings, "(integer) n", "(nil)" and
// numbered array items. The json and yaml formats first convert a reply
// with Value so scripts get plain data. Structs and maps, such as the
// bench report, render as a two-column table in text mode.
package output
