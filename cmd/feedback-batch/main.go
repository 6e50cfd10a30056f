// feedback-batch classifies customer feedback in bulk against a remote
// classification service and reports category statistics.
//
// Usage:
//
//	feedback-batch batch -csv reviews.csv -format json -out results/
//	cat feedback.txt | feedback-batch batch -yes
//	feedback-batch classify "The app crashes when I upload a photo"
//	feedback-batch health
//	feedback-batch history -limit 10
//
// Configuration is read from the environment, see internal/config.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

const (
	exitOK       = 0
	exitFailure  = 1
	exitUsage    = 2
	exitCanceled = 130
)

const usage = `Usage: feedback-batch <command> [flags]

Commands:
  batch     classify many feedbacks (-csv file | -file file | stdin)
  classify  classify a single feedback
  health    probe the classification service
  history   list stored batch runs (requires DATABASE_DSN)

Run 'feedback-batch <command> -h' for command flags.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "batch":
		return runBatch(ctx, args[1:], stdin, stdout, stderr)
	case "classify":
		return runClassify(ctx, args[1:], stdin, stdout, stderr)
	case "health":
		return runHealth(ctx, args[1:], stdout, stderr)
	case "history":
		return runHistory(ctx, args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(stderr, "feedback-batch: unknown command %q\n\n%s", args[0], usage)
		return exitUsage
	}
}
