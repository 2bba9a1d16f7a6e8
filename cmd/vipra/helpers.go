package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"vipra/internal/application/port/input"
	"vipra/internal/infrastructure/render"
)

// inputFlags are shared by every command that runs the pipeline.
type inputFlags struct {
	screenshot string
	hierarchy  string
	review     string
	reviewFile string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.screenshot, "screenshot", "", "Screenshot image (PNG or JPEG, required)")
	fs.StringVar(&f.hierarchy, "hierarchy", "", "UIAutomator hierarchy XML dump")
	fs.StringVar(&f.review, "review", "", "Review text")
	fs.StringVar(&f.reviewFile, "review-file", "", "File holding the review text, - for stdin")
	_ = cmd.MarkFlagRequired("screenshot")
	cmd.MarkFlagsMutuallyExclusive("review", "review-file")
}

// request loads the inputs. The returned closer releases the hierarchy file
// and must be called once the pipeline has finished.
func (f *inputFlags) request(stdin io.Reader) (input.AnalysisRequest, func(), error) {
	noop := func() {}
	if f.screenshot == "" {
		return input.AnalysisRequest{}, noop, errors.New("--screenshot is required")
	}
	review, err := f.readReview(stdin)
	if err != nil {
		return input.AnalysisRequest{}, noop, err
	}

	img, err := render.LoadImage(f.screenshot)
	if err != nil {
		return input.AnalysisRequest{}, noop, err
	}
	req := input.AnalysisRequest{Screenshot: img, Review: review}

	if f.hierarchy == "" {
		return req, noop, nil
	}
	file, err := os.Open(f.hierarchy)
	if err != nil {
		return input.AnalysisRequest{}, noop, fmt.Errorf("open hierarchy: %w", err)
	}
	req.Hierarchy = file
	return req, func() { _ = file.Close() }, nil
}

func (f *inputFlags) readReview(stdin io.Reader) (string, error) {
	switch {
	case f.reviewFile == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read review from stdin: %w", err)
		}
		return string(data), nil
	case f.reviewFile != "":
		data, err := os.ReadFile(f.reviewFile)
		if err != nil {
			return "", fmt.Errorf("read review: %w", err)
		}
		return string(data), nil
	case f.review != "":
		return f.review, nil
	default:
		return "", errors.New("one of --review or --review-file is required")
	}
}

// writeOutput writes to path, or to w when path is empty or "-".
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
