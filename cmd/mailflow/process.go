package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/mailflow/internal/cli"
	"github.com/Veraticus/mailflow/internal/common"
	"github.com/Veraticus/mailflow/internal/engine"
)

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process [email-id]",
		Short: "Categorize, extract action items and draft replies",
		Long: `Run the processing pipeline for one email, or for every unprocessed
email when no ID is given. Each email is categorized, its action items are
extracted and a reply is drafted for Important and To-Do emails. Stage
failures are reported but never leave an email unprocessed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runProcess,
	}

	cmd.Flags().Int("limit", 0, "maximum number of emails to process (0 = all)")
	cmd.Flags().Int("workers", 1, "number of emails processed concurrently")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address while processing (e.g. :9090)")

	_ = viper.BindPFlag("processing.limit", cmd.Flags().Lookup("limit"))
	_ = viper.BindPFlag("processing.workers", cmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("metrics.addr", cmd.Flags().Lookup("metrics-addr"))

	return cmd
}

func runProcess(cmd *cobra.Command, args []string) error {
	interruptHandler := cli.NewInterruptHandler(os.Stderr)
	ctx := interruptHandler.HandleInterrupts(cmd.Context())

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStore(store)

	processor, err := newProcessor(store)
	if err != nil {
		return err
	}

	if addr := viper.GetString("metrics.addr"); addr != "" {
		stop := serveMetrics(addr)
		defer stop()
	}

	if len(args) == 1 {
		result, err := processor.ProcessEmail(ctx, args[0])
		if result != nil {
			printResult(result)
		}
		return err
	}

	var (
		mu  sync.Mutex
		bar *progressbar.ProgressBar
	)
	summary, err := processor.ProcessAll(ctx, engine.BatchOptions{
		Limit:   viper.GetInt("processing.limit"),
		Workers: viper.GetInt("processing.workers"),
		OnProgress: func(done, total int, _ *engine.ProcessingResult, _ error) {
			mu.Lock()
			defer mu.Unlock()
			if bar == nil {
				bar = cli.NewBatchProgress(os.Stderr, total)
			}
			if err := bar.Add(1); err != nil {
				slog.Debug("Failed to update progress bar", "done", done, "error", err)
			}
		},
	})
	if summary != nil {
		common.LogInfo("Batch finished", common.Fields{
			"run_id":     summary.RunID,
			"attempted":  summary.Attempted,
			"successful": summary.Successful,
			"failed":     summary.Failed,
		})
		printSummary(summary)
	}
	if err != nil && interruptHandler.WasInterrupted() {
		return nil
	}
	return err
}

func printResult(result *engine.ProcessingResult) {
	lines := [][2]string{
		{"Email", result.EmailID},
		{"Category", cli.FormatCategory(result.Category)},
		{"Action items", fmt.Sprint(len(result.ActionItems))},
	}
	if result.Draft != nil {
		lines = append(lines, [2]string{"Draft", fmt.Sprintf("#%d %s", result.Draft.ID, result.Draft.Subject)})
	}
	fmt.Println(cli.RenderBox(cli.RobotIcon+" Processed", cli.RenderKeyValues(lines))) //nolint:forbidigo // User-facing output

	for _, item := range result.ActionItems {
		fmt.Printf("  %s %s\n", cli.FormatPriority(item.Priority), item.Task) //nolint:forbidigo // User-facing output
	}
	for _, msg := range result.Errors {
		fmt.Println(cli.FormatWarning(msg)) //nolint:forbidigo // User-facing output
	}
}

func printSummary(summary *engine.BatchSummary) {
	if summary.Attempted == 0 {
		fmt.Println(cli.FormatInfo("No unprocessed emails")) //nolint:forbidigo // User-facing output
		return
	}

	content := cli.RenderKeyValues([][2]string{
		{"Processed", fmt.Sprint(summary.Processed)},
		{"Successful", fmt.Sprint(summary.Successful)},
		{"Failed", fmt.Sprint(summary.Failed)},
		{"Duration", summary.Duration.Round(time.Millisecond).String()},
		{"Run", summary.RunID},
	})
	fmt.Println(cli.RenderBox(cli.ChartIcon+" Batch Summary", content)) //nolint:forbidigo // User-facing output

	for _, msg := range summary.Errors {
		fmt.Println(cli.FormatWarning(msg)) //nolint:forbidigo // User-facing output
	}
}

// serveMetrics exposes the default Prometheus registry until the returned
// function is called.
func serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("Serving metrics", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Warn("Failed to stop metrics server", "error", err)
		}
	}
}

func urgencyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "urgency <email-id>",
		Short: "Score how quickly an email needs a response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore(store)

			processor, err := newProcessor(store)
			if err != nil {
				return err
			}

			urgency, err := processor.AnalyzeUrgency(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			content := cli.RenderKeyValues([][2]string{
				{"Score", fmt.Sprintf("%d / 5", urgency.Score)},
				{"Respond within", urgency.SuggestedResponseTime},
				{"Reason", urgency.Reason},
			})
			fmt.Println(cli.RenderBox("Urgency", content)) //nolint:forbidigo // User-facing output
			return nil
		},
	}
}
