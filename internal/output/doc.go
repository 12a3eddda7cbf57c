// Package output provides formatters for displaying deployment results.
//
// The package supports table (kubectl-style), JSON, and YAML formats behind
// a single Formatter interface, with color support and automatic TTY
// detection for the table renderer.
//
// Basic usage:
//
//	formatter := output.NewFormatter(output.FormatTable, output.WithNoColor(noColor))
//	formatter.FormatReport(os.Stdout, report)
package output
