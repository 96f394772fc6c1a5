/*
Package cli provides command-line interface utilities for Janus.

The cli package includes output formatters, signal handling, and common
error types used by the janus command.

Output Formatting:

The cli package supports text and JSON output formats for displaying
command results:

	formatter := cli.NewFormatter(cli.FormatJSON)
	data := MyCommandResult{...}
	if err := formatter.FormatTo(os.Stdout, data); err != nil {
		return err
	}

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	sigChan := cli.WaitForShutdown()
	<-sigChan

Error Types:

ConfigError and CommandError distinguish configuration mistakes from
runtime failures so the command can report them differently.
*/
package cli
