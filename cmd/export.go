package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/compte/internal/cli"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the full analytics snapshot as JSON or YAML",
	RunE:  runExport,
}

var (
	exportFormat string
	exportOutput string
)

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", cli.FormatJSON, "Output format: json or yaml")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}

func runExport(_ *cobra.Command, _ []string) error {
	switch exportFormat {
	case cli.FormatJSON, cli.FormatYAML, "yml":
	default:
		return fmt.Errorf("unknown export format %q (want json or yaml)", exportFormat)
	}

	a := loadData()

	var w io.Writer = os.Stdout
	if exportOutput != "" {
		f, err := os.OpenFile(exportOutput, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("creating %s: %w", exportOutput, err)
		}
		defer f.Close()
		w = f
	}

	if err := cli.Export(w, exportFormat, a.snap); err != nil {
		return err
	}
	if exportOutput != "" && !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Wrote %d sessions to %s\n", len(a.snap.Sessions), exportOutput)
	}
	return nil
}
