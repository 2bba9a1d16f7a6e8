package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vipra/internal/application/port/input"
	"vipra/internal/infrastructure/render"
)

var analyzeFlags struct {
	in           inputFlags
	output       string
	format       string
	annotated    string
	responseFile string
	withPrompt   bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Decide whether a review matches what the screen shows",
	Long: `Analyze grounds the review on the hierarchy, annotates the screenshot,
asks the configured multimodal model for a verdict and prints a report.

With --response-file the model is not called; the recorded response is
interpreted against the freshly computed grounding instead.

Examples:
  vipra analyze --screenshot=screen.png --hierarchy=screen.xml \
      --review="The submit button doesn't respond to taps"
  vipra analyze --screenshot=screen.png --hierarchy=screen.xml \
      --review-file=review.txt --format=json -o report.json --annotated=boxes.png`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	analyzeFlags.in.register(analyzeCmd)
	f := analyzeCmd.Flags()
	f.StringVarP(&analyzeFlags.output, "output", "o", "", "Report path (default: stdout)")
	f.StringVar(&analyzeFlags.format, "format", formatText, "Report format: text, json or yaml")
	f.StringVar(&analyzeFlags.annotated, "annotated", "", "Write the annotated screenshot to this path")
	f.StringVar(&analyzeFlags.responseFile, "response-file", "", "Interpret a recorded model response instead of calling the model")
	f.BoolVar(&analyzeFlags.withPrompt, "with-prompt", false, "Include the composed prompt in the report")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	var recorded string
	if analyzeFlags.responseFile != "" {
		data, err := os.ReadFile(analyzeFlags.responseFile)
		if err != nil {
			return fmt.Errorf("read response file: %w", err)
		}
		recorded = string(data)
	}

	req, done, err := analyzeFlags.in.request(cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer done()

	container, err := newContainer(cmd, analyzeFlags.responseFile != "")
	if err != nil {
		return err
	}
	defer container.Close()

	var res *input.AnalysisResult
	if analyzeFlags.responseFile != "" {
		res, err = container.Analyzer.Replay(cmd.Context(), req, recorded)
	} else {
		res, err = container.Analyzer.Analyze(cmd.Context(), req)
	}
	if err != nil {
		container.Logger.Error("Analysis failed", "error", err)
		return err
	}

	if analyzeFlags.annotated != "" && res.Annotated != nil {
		if err := render.SaveImage(res.Annotated.Image, analyzeFlags.annotated); err != nil {
			return err
		}
	}

	data, err := encodeReport(newReport(res, analyzeFlags.withPrompt), analyzeFlags.format)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), analyzeFlags.output, data)
}
