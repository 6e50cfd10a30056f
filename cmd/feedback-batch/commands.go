package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/kursadbilgin/feedback-batch/internal/classifier"
	"github.com/kursadbilgin/feedback-batch/internal/domain"
	"github.com/kursadbilgin/feedback-batch/internal/export"
	"github.com/kursadbilgin/feedback-batch/internal/repository"
)

func runClassify(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("classify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	text := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(text) == "" && !isTerminal(stdin) {
		data, err := io.ReadAll(stdin)
		if err != nil {
			fmt.Fprintf(stderr, "Error: failed to read feedback: %v\n", err)
			return exitFailure
		}
		text = string(data)
	}

	if err := domain.ValidateFeedbackText(text); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	a, err := newApp(ctx, appOptions{limiter: true})
	if err != nil {
		fmt.Fprintf(stderr, "feedback-batch: %v\n", err)
		return exitFailure
	}
	defer a.Close()

	prediction, err := a.dispatcher.Classify(ctx, strings.TrimSpace(text))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", classifier.ErrorMessage(err))
		if errors.Is(err, context.Canceled) {
			return exitCanceled
		}
		return exitFailure
	}

	fmt.Fprint(stdout, export.SingleResult(text, *prediction))
	return exitOK
}

func runHealth(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		fmt.Fprintf(stderr, "feedback-batch: %v\n", err)
		return exitFailure
	}
	defer a.Close()

	healthCtx, cancel := context.WithTimeout(ctx, a.cfg.HealthTimeout())
	defer cancel()

	status, err := a.client.Health(healthCtx)
	fmt.Fprintf(stdout, "Classification service: %s\n", status)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	if status != classifier.HealthOnline {
		return exitFailure
	}
	return exitOK
}

func runHistory(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(stderr)
	limit := fs.Int("limit", repository.DefaultHistoryLimit, "number of recent runs to list")
	id := fs.String("id", "", "show the full report of one run")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	a, err := newApp(ctx, appOptions{history: true})
	if err != nil {
		fmt.Fprintf(stderr, "feedback-batch: %v\n", err)
		return exitFailure
	}
	defer a.Close()

	if a.runs == nil {
		fmt.Fprintln(stderr, "feedback-batch: run history requires DATABASE_DSN")
		return exitFailure
	}

	if *id != "" {
		record, err := a.runs.GetByID(ctx, strings.TrimSpace(*id))
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailure
		}
		printReport(stdout, record.Run, record.Statistics)
		return exitOK
	}

	summaries, err := a.runs.ListRecent(ctx, *limit)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	printHistory(stdout, summaries)
	return exitOK
}

func printHistory(w io.Writer, summaries []repository.RunSummary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No batch runs recorded yet")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSOURCE\tSTATUS\tITEMS\tOK\tERRORS\tTOP CATEGORY\tAVG CONF\tTIME")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s%%\t%.1fs\n",
			s.ID,
			s.StartedAt.Local().Format("2006-01-02 15:04:05"),
			s.Source,
			s.Status,
			s.ItemCount,
			s.SuccessCount,
			s.FailureCount,
			s.TopCategory,
			s.AvgConfidence,
			s.Elapsed().Seconds(),
		)
	}
	_ = tw.Flush()
}
