/*
Package cli provides helpers shared by the observe command.

Output Formatting:

Commands that print structured results accept --output text|json|yaml:

	format, err := cli.ParseOutputFormat(flag)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), info)

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

Exit Codes:

ExitCode maps a command error onto the process exit status.
*/
package cli
