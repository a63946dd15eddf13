package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kirillkom/graph-pattern-predictor/internal/adapters/stream"
	"github.com/kirillkom/graph-pattern-predictor/internal/bootstrap"
	"github.com/kirillkom/graph-pattern-predictor/internal/config"
	"github.com/kirillkom/graph-pattern-predictor/internal/core/ports"
	"github.com/kirillkom/graph-pattern-predictor/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/graph-pattern-predictor/internal/observability/logging"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.LoadFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	os.Exit(execute(newRootCmd(&cfg), os.Stderr))
}

// execute runs the command tree and reports any error on stderr, since the
// commands silence cobra's own error printing.
func execute(rootCmd *cobra.Command, stderr io.Writer) int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	var input string

	rootCmd := &cobra.Command{
		Use:   "predict <resdir>",
		Short: "Predict target candidates for source entities read line by line",
		Long: `Reads one N3 term per line (<iri> or "literal"), evaluates the learned
graph patterns of the newest model in <resdir> against the SPARQL endpoint and
writes one JSON record per entity to stdout.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cfg.ResultsDir = args[0]
			}
			if cfg.ResultsDir == "" {
				return fmt.Errorf("result directory is required (argument or RESDIR)")
			}
			return runPredict(cmd.Context(), *cfg, input, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&cfg.SPARQLEndpoint, "sparql-endpoint", cfg.SPARQLEndpoint, "SPARQL endpoint URL")
	flags.IntVar(&cfg.MaxQueries, "max-queries", cfg.MaxQueries, "pattern budget per prediction (0 = no reduction)")
	flags.StringVar(&cfg.ClusteringVariant, "clustering-variant", cfg.ClusteringVariant, "pattern reduction variant (top_score, precision, greedy_coverage; empty = best)")
	flags.StringVar(&cfg.FusionMethods, "fusion-methods", cfg.FusionMethods, "comma-delimited fusion methods (empty or all = every method)")
	flags.Float64Var(&cfg.QueryTimeoutSeconds, "timeout", cfg.QueryTimeoutSeconds, "per-query timeout in seconds (0 = calibrate)")
	flags.IntVar(&cfg.MaxResults, "max-results", cfg.MaxResults, "max fused results per method (0 = unlimited)")
	flags.IntVar(&cfg.MaxTargetCandidatesPerPattern, "max-target-candidates-per-gp", cfg.MaxTargetCandidatesPerPattern, "max candidates listed per pattern (0 = unlimited)")
	flags.BoolVar(&cfg.BatchPredict, "batch-predict", cfg.BatchPredict, "predict several entities per endpoint round trip")
	flags.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "lines per chunk when batching")
	flags.BoolVar(&cfg.DropBadURIs, "drop-bad-uris", cfg.DropBadURIs, "skip malformed or uncurifiable lines instead of failing")
	flags.StringVar(&input, "input", "-", "input file (- reads stdin)")

	runsCmd := &cobra.Command{
		Use:          "runs",
		Short:        "List recent prediction runs from the run log",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return listRuns(cmd.Context(), cfg.PostgresDSN, limit, cmd.OutOrStdout())
		},
	}
	runsCmd.Flags().Int("limit", 20, "number of runs to show")
	rootCmd.AddCommand(runsCmd)

	return rootCmd
}

func runPredict(parent context.Context, cfg config.Config, input string, stdin io.Reader, stdout io.Writer) error {
	slog.SetDefault(logging.NewLogger("predict", cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Service:    "predict",
		WithRunLog: true,
		WithQueue:  true,
	})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	reader := stdin
	if input != "" && input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		reader = f
	}

	var sink ports.RecordSink = stream.NewJSONLinesSink(stdout)
	if app.Queue != nil {
		sink = stream.MultiSink{sink, app.Queue}
	}

	progress, err := app.Stream.Run(ctx, reader, sink)
	if err != nil {
		slog.Error("prediction_run_failed",
			"processed", progress.Processed,
			"elapsed_s", progress.Elapsed.Seconds(),
			"error", err,
		)
		return err
	}
	slog.Info("prediction_run_finished",
		"processed", progress.Processed,
		"elapsed_s", progress.Elapsed.Seconds(),
	)
	return nil
}

func listRuns(ctx context.Context, dsn string, limit int, out io.Writer) error {
	if dsn == "" {
		return fmt.Errorf("POSTGRES_DSN is not set")
	}
	db, err := postgres.OpenDB(dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := postgres.NewRunRepository(db).ListRuns(ctx, limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPROCESSED\tELAPSED\tPATTERNS\tARTIFACT\tSTARTED")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%s\t%s\n",
			run.ID,
			run.Status,
			run.Processed,
			run.Elapsed.Round(time.Millisecond),
			run.PatternCount,
			run.ModelArtifact,
			run.StartedAt.Format(time.RFC3339),
		)
	}
	return tw.Flush()
}
