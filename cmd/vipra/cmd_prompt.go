package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vipra/internal/infrastructure/render"
)

var promptFlags struct {
	in        inputFlags
	output    string
	annotated string
}

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the prompt that analyze would send to the model",
	Long: `Prompt runs every stage up to prompt composition and prints the prompt.
Together with --annotated it produces exactly what the model would receive,
so the request can be replayed elsewhere and fed back with
"vipra analyze --response-file".`,
	Args: cobra.NoArgs,
	RunE: runPrompt,
}

func init() {
	promptFlags.in.register(promptCmd)
	f := promptCmd.Flags()
	f.StringVarP(&promptFlags.output, "output", "o", "", "Prompt path (default: stdout)")
	f.StringVar(&promptFlags.annotated, "annotated", "", "Write the annotated screenshot to this path")
}

func runPrompt(cmd *cobra.Command, _ []string) error {
	req, done, err := promptFlags.in.request(cmd.InOrStdin())
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
	if !res.Grounded {
		return fmt.Errorf("no review phrase matched an element; nothing to ask the model (verdict %s)", res.Verdict.Label)
	}

	if promptFlags.annotated != "" {
		if err := render.SaveImage(res.Annotated.Image, promptFlags.annotated); err != nil {
			return err
		}
	}
	return writeOutput(cmd.OutOrStdout(), promptFlags.output, []byte(res.Prompt+"\n"))
}
