package main

import (
	"github.com/spf13/cobra"
)

var groundFlags struct {
	in     inputFlags
	format string
}

var groundCmd = &cobra.Command{
	Use:   "ground",
	Short: "Show which UI elements each review phrase matched",
	Long: `Ground runs phrase extraction and grounding only. No model is called and
no API key is needed.`,
	Args: cobra.NoArgs,
	RunE: runGround,
}

func init() {
	groundFlags.in.register(groundCmd)
	groundCmd.Flags().StringVar(&groundFlags.format, "format", formatText, "Output format: text, json or yaml")
}

func runGround(cmd *cobra.Command, _ []string) error {
	req, done, err := groundFlags.in.request(cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer done()

	container, err := newContainer(cmd, true)
	if err != nil {
		return err
	}
	defer container.Close()

	res, err := container.Analyzer.Prepare(cmd.Context(), req)
	if err != nil {
		return err
	}

	if groundFlags.format == formatText || groundFlags.format == "" {
		return writeOutput(cmd.OutOrStdout(), "", []byte(groundingTable(res)))
	}
	data, err := encodeReport(newReport(res, false), groundFlags.format)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), "", data)
}
