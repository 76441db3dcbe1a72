package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (o *rootOptions) jsonOutput() bool { return o.output == "json" }

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(cmd *cobra.Command) *tabwriter.Writer {
	return tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
}

func validateOutput(o *rootOptions) error {
	switch o.output {
	case "text", "json":
		return nil
	default:
		return NewCLIError(fmt.Sprintf("unknown output format %q", o.output), "use --output text or --output json", nil)
	}
}
