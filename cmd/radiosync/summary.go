package main

import (
	"fmt"
	"sort"

	"github.com/azimuth-networks/radiosync"
	"github.com/spf13/cobra"
)

// printSummary writes the human-readable batch report to stdout; structured
// logs go to stderr.
func printSummary(cmd *cobra.Command, operation string, summary *radiosync.BatchSummary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n==================== %s summary ====================\n", operation)
	fmt.Fprintf(out, "Succeeded: %d\n", len(summary.Succeeded))
	fmt.Fprintf(out, "Failed:    %d\n", len(summary.Failed))
	fmt.Fprintf(out, "Skipped:   %d\n", len(summary.Skipped))
	fmt.Fprintf(out, "Total:     %d\n", summary.Total)

	if len(summary.Succeeded) > 0 {
		fmt.Fprintln(out, "\nSucceeded radios:")
		for _, serial := range summary.Succeeded {
			fmt.Fprintf(out, "  - %s\n", serial)
		}
	}
	if len(summary.Failed) > 0 {
		serials := make([]string, 0, len(summary.Failed))
		for serial := range summary.Failed {
			serials = append(serials, serial)
		}
		sort.Strings(serials)
		fmt.Fprintln(out, "\nFailed radios:")
		for _, serial := range serials {
			fmt.Fprintf(out, "  - %s: %s\n", serial, summary.Failed[serial])
		}
	}
	if len(summary.Skipped) > 0 {
		fmt.Fprintln(out, "\nSkipped radios:")
		for _, serial := range summary.Skipped {
			fmt.Fprintf(out, "  - %s\n", serial)
		}
	}
}
