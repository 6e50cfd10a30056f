package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/feedback-batch/internal/domain"
	"github.com/kursadbilgin/feedback-batch/internal/export"
	"github.com/kursadbilgin/feedback-batch/internal/handler"
	"github.com/kursadbilgin/feedback-batch/internal/ingest"
	"github.com/kursadbilgin/feedback-batch/internal/service"
	"github.com/kursadbilgin/feedback-batch/internal/stats"
	"github.com/kursadbilgin/feedback-batch/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

const (
	resultPreviewLength = 150
	shutdownTimeout     = 5 * time.Second
)

type batchFlags struct {
	csvPath  string
	filePath string
	format   string
	out      string
	yes      bool
}

func runBatch(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f batchFlags
	fs.StringVar(&f.csvPath, "csv", "", "CSV file with a feedback column (first 100 rows are used)")
	fs.StringVar(&f.filePath, "file", "", "text file with one feedback per line (max 100)")
	fs.StringVar(&f.format, "format", "", "export format: csv, json, summary, transcript")
	fs.StringVar(&f.out, "out", "", "export destination file or directory (default stdout)")
	fs.BoolVar(&f.yes, "yes", false, "skip the confirmation prompt for large batches")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if f.csvPath != "" && f.filePath != "" {
		fmt.Fprintln(stderr, "feedback-batch: -csv and -file are mutually exclusive")
		return exitUsage
	}

	var format export.Format
	if f.format != "" {
		parsed, err := export.ParseFormat(f.format)
		if err != nil {
			fmt.Fprintf(stderr, "feedback-batch: %v\n", err)
			return exitUsage
		}
		format = parsed
	}

	req, err := readBatchRequest(f, stdin, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	a, err := newApp(ctx, appOptions{limiter: true, history: true})
	if err != nil {
		fmt.Fprintf(stderr, "feedback-batch: %v\n", err)
		return exitFailure
	}
	defer a.Close()

	printServiceStatus(ctx, a, stderr)

	confirmer := &promptConfirmer{
		in:          stdin,
		out:         stderr,
		assumeYes:   f.yes,
		interactive: f.csvPath != "" || f.filePath != "",
	}
	confirmer.interactive = confirmer.interactive && isTerminal(stdin)

	runner, err := service.NewBatchRunner(a.dispatcher, confirmer, service.RunnerOptions{
		ItemDelay:        a.cfg.ItemDelay(),
		MaxBatchSize:     a.cfg.MaxBatchSize,
		ConfirmThreshold: a.cfg.ConfirmThreshold,
	}, a.logger)
	if err != nil {
		fmt.Fprintf(stderr, "feedback-batch: %v\n", err)
		return exitFailure
	}
	if _, warning, err := runner.Prepare(req); err == nil && warning != "" {
		fmt.Fprintf(stderr, "⚠️  %s\n", warning)
	}
	runner.SetMetrics(a.metrics)
	if a.runs != nil {
		runner.SetRunRepository(a.runs)
	}

	tracker := service.NewProgressTracker(progressPrinter(stderr))

	result, runErr := runWithOpsServer(ctx, a, func(ctx context.Context) (*service.BatchResult, error) {
		return runner.Run(ctx, req, tracker.Observe)
	}, tracker)

	if result == nil {
		fmt.Fprintf(stderr, "Error: %v\n", runErr)
		return exitCodeFor(runErr)
	}
	tracker.Finish(result.Run)

	reportOut := stdout
	if format != "" && (f.out == "" || f.out == "-") {
		reportOut = stderr
	}
	printReport(reportOut, result.Run, result.Statistics)

	if format != "" {
		if err := writeExport(format, f.out, stdout, result, time.Now()); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailure
		}
	}

	if runErr != nil {
		fmt.Fprintf(stderr, "Batch canceled after %d of %d feedbacks\n", len(result.Run.Outcomes), len(result.Run.Items))
		return exitCanceled
	}
	return exitOK
}

func readBatchRequest(f batchFlags, stdin io.Reader, stderr io.Writer) (service.BatchRequest, error) {
	if f.csvPath != "" {
		data, err := os.ReadFile(f.csvPath)
		if err != nil {
			return service.BatchRequest{}, fmt.Errorf("failed to read csv file: %w", err)
		}

		parsed, err := ingest.ParseCSV(string(data))
		if err != nil {
			return service.BatchRequest{}, err
		}
		if len(parsed.Feedbacks) == 0 {
			return service.BatchRequest{}, fmt.Errorf("%w in csv", domain.ErrNoFeedbacks)
		}
		if parsed.Header != "" {
			fmt.Fprintf(stderr, "Loaded %d feedbacks from column %q\n", len(parsed.Feedbacks), parsed.Header)
		}
		return service.BatchRequest{Texts: parsed.Feedbacks, Source: domain.SourceCSV}, nil
	}

	var data []byte
	var err error
	if f.filePath != "" {
		data, err = os.ReadFile(f.filePath)
	} else {
		data, err = io.ReadAll(stdin)
	}
	if err != nil {
		return service.BatchRequest{}, fmt.Errorf("failed to read feedback input: %w", err)
	}

	return service.BatchRequest{Texts: ingest.SplitLines(string(data)), Source: domain.SourceManual}, nil
}

// runWithOpsServer serves the ops surface for the lifetime of the batch when
// METRICS_ADDR is set. A server failure cancels the batch.
func runWithOpsServer(
	ctx context.Context,
	a *app,
	batch func(ctx context.Context) (*service.BatchResult, error),
	tracker *service.ProgressTracker,
) (*service.BatchResult, error) {
	if a.cfg.MetricsAddr == "" {
		return batch(ctx)
	}

	ln, err := net.Listen("tcp", a.cfg.MetricsAddr)
	if err != nil {
		return nil, fmt.Errorf("ops server failed: %w", err)
	}

	server := newOpsServer(a, tracker)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("ops server listening", zap.String("addr", ln.Addr().String()))
		if err := server.Listener(ln); err != nil {
			return fmt.Errorf("ops server failed: %w", err)
		}
		return nil
	})

	var result *service.BatchResult
	var runErr error
	g.Go(func() error {
		result, runErr = batch(gctx)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.ShutdownWithContext(shutdownCtx); err != nil {
			a.logger.Warn("ops server shutdown failed", zap.Error(err))
		}
		// Unblocks Listener if it had not started serving yet.
		_ = ln.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		a.logger.Error("ops server stopped the batch", zap.Error(err))
		if runErr == nil {
			runErr = err
		}
	}
	return result, runErr
}

func newOpsServer(a *app, tracker *service.ProgressTracker) *fiber.App {
	server := fiber.New(fiber.Config{
		ErrorHandler:          transport.ErrorHandler(a.logger),
		DisableStartupMessage: true,
	})
	server.Use(a.metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(server, a.client, a.sqlDB, a.rdb, a.metrics)
	var history handler.RunHistory
	if a.runs != nil {
		history = a.runs
	}
	if err := handler.RegisterRunRoutes(server, tracker, history); err != nil {
		a.logger.Warn("run routes not registered", zap.Error(err))
	}

	return server
}

func printServiceStatus(ctx context.Context, a *app, w io.Writer) {
	healthCtx, cancel := context.WithTimeout(ctx, a.cfg.HealthTimeout())
	defer cancel()

	status, err := a.client.Health(healthCtx)
	if err != nil {
		a.logger.Debug("health probe failed", zap.Error(err))
	}
	fmt.Fprintf(w, "Classification service: %s\n", status)
}

func progressPrinter(w io.Writer) service.ProgressFunc {
	return func(run *domain.BatchRun, p service.Progress) {
		mark := "✅"
		detail := p.Outcome.Prediction
		if !p.Outcome.Succeeded() {
			mark = "❌"
			detail = p.Outcome.Error
		}
		fmt.Fprintf(w, "[%d/%d] %3d%% %s %s | %s", p.Current, p.Total, p.Percent, mark, detail, p.Preview)
		if p.EstimatedRemaining > 0 {
			fmt.Fprintf(w, " (~%ds left)", int(p.EstimatedRemaining/time.Second))
		}
		fmt.Fprintln(w)
	}
}

func printReport(w io.Writer, run *domain.BatchRun, s stats.Statistics) {
	if run.Warning != "" {
		fmt.Fprintf(w, "⚠️  %s\n", run.Warning)
	}

	fmt.Fprintf(w, "\nBatch %s: %s\n", run.ID, run.Status)
	fmt.Fprintf(w, "Analyzed: %d  Errors: %d  Top: %s (%d)  Avg confidence: %s%%  Time: %ss\n",
		s.Total, s.Errors, s.TopCategory, s.TopCategoryCount, s.AvgConfidence, s.ProcessingTime)
	fmt.Fprintf(w, "Confidence: high %d / medium %d / low %d  Sentiment: +%d / -%d\n",
		s.HighConfidence, s.MediumConfidence, s.LowConfidence, s.Positive, s.Negative)

	if rows := stats.Distribution(s); len(rows) > 0 {
		fmt.Fprintln(w, "\nCategory distribution:")
		for _, row := range rows {
			bar := strings.Repeat("█", int(row.Percent/5))
			fmt.Fprintf(w, "  %s %-20s %3d %5.1f%% %s\n", row.Style.Icon, row.Category, row.Count, row.Percent, bar)
		}
	}

	fmt.Fprintln(w, "\nInsights:")
	for _, insight := range stats.Insights(s) {
		fmt.Fprintf(w, "  - %s\n", insight)
	}

	fmt.Fprintln(w, "\nResults:")
	for _, o := range run.Outcomes {
		preview := domain.Truncate(o.Feedback, resultPreviewLength)
		if o.Succeeded() {
			fmt.Fprintf(w, "  #%d %s %s (%s%%) %s\n", o.Index, domain.StyleFor(o.Prediction).Icon, o.Prediction, formatConfidence(o.Confidence), preview)
			continue
		}
		fmt.Fprintf(w, "  #%d ❌ Error: %s | %s\n", o.Index, o.Error, preview)
	}
}

func writeExport(format export.Format, out string, stdout io.Writer, result *service.BatchResult, now time.Time) error {
	var buf bytes.Buffer
	switch format {
	case export.FormatCSV:
		if err := export.WriteCSV(&buf, result.Run.Outcomes); err != nil {
			return err
		}
	case export.FormatJSON:
		if err := export.WriteJSON(&buf, result.Run.Outcomes, result.Statistics, now); err != nil {
			return err
		}
	case export.FormatSummary:
		text, err := export.Summary(result.Statistics)
		if err != nil {
			return err
		}
		buf.WriteString(text)
	case export.FormatTranscript:
		text, err := export.Transcript(result.Run.Outcomes)
		if err != nil {
			return err
		}
		buf.WriteString(text)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}

	if out == "" || out == "-" {
		_, err := stdout.Write(buf.Bytes())
		return err
	}

	path := out
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		name := format.FileName()
		if name == "" {
			name = "batch-analysis-" + format.String() + ".txt"
		}
		path = filepath.Join(out, name)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// promptConfirmer asks on the terminal before large batches. Without a
// terminal it only proceeds when assumeYes is set.
type promptConfirmer struct {
	in          io.Reader
	out         io.Writer
	assumeYes   bool
	interactive bool
}

func (c *promptConfirmer) Confirm(ctx context.Context, total int) (bool, error) {
	if c.assumeYes {
		return true, nil
	}
	if !c.interactive {
		fmt.Fprintf(c.out, "Refusing to process %d feedbacks without confirmation, pass -yes\n", total)
		return false, nil
	}

	estimate := (total + 1) / 2
	fmt.Fprintf(c.out, "Process %d feedbacks? This may take about %d seconds. [y/N]: ", total, estimate)

	answer := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(c.in).ReadString('\n')
		answer <- line
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case line := <-answer:
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return exitCanceled
	case errors.Is(err, domain.ErrValidation):
		return exitUsage
	default:
		return exitFailure
	}
}

func formatConfidence(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
