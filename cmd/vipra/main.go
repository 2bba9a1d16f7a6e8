// vipra checks whether a user review describes a problem that is visible on
// a mobile app screen.
//
// Usage:
//
//	vipra analyze --screenshot=<png> --hierarchy=<xml> --review="..." [-o report.json]
//	vipra analyze --screenshot=<png> --hierarchy=<xml> --review-file=<txt> --response-file=<txt>
//	vipra ground  --screenshot=<png> --hierarchy=<xml> --review="..."
//	vipra prompt  --screenshot=<png> --hierarchy=<xml> --review="..." --annotated=<png>
//
// Exit status is 2 for a malformed hierarchy, 3 when the reasoning model is
// unavailable and 1 for any other failure.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"vipra/internal/domain/entity"
)

const (
	exitFailure              = 1
	exitMalformedHierarchy   = 2
	exitReasoningUnavailable = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, entity.ErrMalformedHierarchy):
		return exitMalformedHierarchy
	case errors.Is(err, entity.ErrReasoningUnavailable):
		return exitReasoningUnavailable
	default:
		return exitFailure
	}
}
