// Argusctl runs the alert pipeline and the frozen classifier ensemble from
// the command line: batch analysis of an alerts file, history re-scoring,
// and training-set export.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/linnemanlabs/go-core/cfg"
	"github.com/linnemanlabs/go-core/log"
	v "github.com/linnemanlabs/go-core/version"

	"github.com/linnemanlabs/argus/internal/alert"
	ac "github.com/linnemanlabs/argus/internal/cfg"
	"github.com/linnemanlabs/argus/internal/enrich"
	"github.com/linnemanlabs/argus/internal/history"
	"github.com/linnemanlabs/argus/internal/history/filestore"
	"github.com/linnemanlabs/argus/internal/history/pgstore"
	"github.com/linnemanlabs/argus/internal/l3"
	"github.com/linnemanlabs/argus/internal/llm/claude"
	"github.com/linnemanlabs/argus/internal/mitre"
	"github.com/linnemanlabs/argus/internal/postgres"
	"github.com/linnemanlabs/argus/internal/reputation"
	"github.com/linnemanlabs/argus/internal/triage"
)

const appName = "argus"
const component = "argusctl"

const usage = `usage: argusctl <command> [flags]

commands:
  analyze          run every alert in a JSON file through the pipeline
  predict          re-score stored history records with the classifier ensemble
  export-training  flatten history into training rows for offline model fitting

run "argusctl <command> -h" for command flags
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return errors.New("command required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	v.AppName = appName
	v.Component = component

	switch args[0] {
	case "analyze":
		return runAnalyze(ctx, args[1:])
	case "predict":
		return runPredict(ctx, args[1:])
	case "export-training":
		return runExportTraining(ctx, args[1:])
	case "-h", "--help", "help":
		fmt.Fprint(os.Stderr, usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// parseFlags registers app and log config on a fresh FlagSet, plus any extra
// command flags, then parses argv and the ARGUS_ environment.
func parseFlags(name string, args []string, appCfg *ac.Config, logCfg *log.Config, extra func(*flag.FlagSet)) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	appCfg.RegisterFlags(fs)
	logCfg.RegisterFlags(fs)
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.FillFromEnv(fs, "ARGUS_", func(format string, fargs ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", fargs...)
	})
	return logCfg.Validate()
}

func newLogger(ctx context.Context, logCfg log.Config) (context.Context, log.Logger, error) {
	lg, err := log.New(logCfg.ToOptions(appName))
	if err != nil {
		return ctx, nil, fmt.Errorf("logger init: %w", err)
	}
	L := lg.With("component", component)
	return log.WithContext(ctx, L), L, nil
}

// openStore picks postgres or the history file, mirroring the server.
func openStore(ctx context.Context, appCfg ac.Config, L log.Logger) (history.Store, func(), error) {
	if appCfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, appCfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres pool: %w", err)
		}
		store, err := pgstore.New(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("pgstore init: %w", err)
		}
		L.Info(ctx, "using postgres store")
		return store, pool.Close, nil
	}
	L.Info(ctx, "using file store", "path", appCfg.HistoryFile)
	return filestore.New(appCfg.HistoryFile), func() {}, nil
}

func runAnalyze(ctx context.Context, args []string) error {
	var (
		appCfg     ac.Config
		logCfg     log.Config
		alertsFile string
	)
	if err := parseFlags("analyze", args, &appCfg, &logCfg, func(fs *flag.FlagSet) {
		fs.StringVar(&alertsFile, "alerts-file", "", "path to a JSON file of alerts to analyze")
	}); err != nil {
		return err
	}
	if alertsFile == "" {
		return errors.New("-alerts-file is required")
	}
	if err := appCfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	ctx, L, err := newLogger(ctx, logCfg)
	if err != nil {
		return err
	}

	alerts, err := alert.LoadFile(alertsFile)
	if err != nil {
		return fmt.Errorf("load alerts: %w", err)
	}
	L.Info(ctx, "loaded alerts", "count", len(alerts), "path", alertsFile)

	catalog, err := mitre.LoadEmbedded()
	if err != nil {
		return fmt.Errorf("technique catalog: %w", err)
	}
	repClient, err := reputation.New(appCfg.VTAPIKey, appCfg.VTBaseURL)
	if err != nil {
		return fmt.Errorf("reputation client: %w", err)
	}
	provider, err := claude.New(appCfg.ClaudeAPIKey, appCfg.ClaudeModel)
	if err != nil {
		return fmt.Errorf("claude provider: %w", err)
	}

	store, closeStore, err := openStore(ctx, appCfg, L)
	if err != nil {
		return err
	}
	defer closeStore()

	enricher := enrich.NewAggregator(mitre.NewMatcher(catalog), repClient)
	engine := triage.NewEngine(enricher, provider, store, nil, L)
	svc := triage.NewService(engine, store, L)

	sum := svc.ProcessBatch(ctx, alerts)

	return json.NewEncoder(os.Stdout).Encode(sum)
}

// recordPrediction pairs a stored record with its ensemble verdict.
type recordPrediction struct {
	RecordID   string        `json:"record_id"`
	Prediction l3.Prediction `json:"prediction"`
}

func runPredict(ctx context.Context, args []string) error {
	var (
		appCfg  ac.Config
		logCfg  log.Config
		outFile string
	)
	if err := parseFlags("predict", args, &appCfg, &logCfg, func(fs *flag.FlagSet) {
		fs.StringVar(&outFile, "out", "l3_predictions.json", "path to write predictions JSON")
	}); err != nil {
		return err
	}
	if appCfg.ModelArtifact == "" {
		return errors.New("-model-artifact is required")
	}

	ctx, L, err := newLogger(ctx, logCfg)
	if err != nil {
		return err
	}

	ensemble, err := l3.Load(appCfg.ModelArtifact)
	if err != nil {
		return err
	}
	L.Info(ctx, "loaded classifier ensemble", "clusters", ensemble.ClusterCount())

	store, closeStore, err := openStore(ctx, appCfg, L)
	if err != nil {
		return err
	}
	defer closeStore()

	recs, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	var (
		preds   []recordPrediction
		skipped int
	)
	for _, rec := range recs {
		pred, err := ensemble.Predict(rec.Alert, rec.Assessment)
		if err != nil {
			L.Warn(ctx, "record skipped", "record_id", rec.ID, "reason", err.Error())
			skipped++
			continue
		}
		preds = append(preds, recordPrediction{RecordID: rec.ID, Prediction: pred})
	}

	if err := writeJSON(outFile, preds); err != nil {
		return err
	}

	L.Info(ctx, "predictions written",
		"path", outFile,
		"predicted", len(preds),
		"skipped", skipped,
	)
	return nil
}

func runExportTraining(ctx context.Context, args []string) error {
	var (
		appCfg  ac.Config
		logCfg  log.Config
		outFile string
	)
	if err := parseFlags("export-training", args, &appCfg, &logCfg, func(fs *flag.FlagSet) {
		fs.StringVar(&outFile, "out", "training_set.json", "path to write training rows JSON")
	}); err != nil {
		return err
	}

	ctx, L, err := newLogger(ctx, logCfg)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, appCfg, L)
	if err != nil {
		return err
	}
	defer closeStore()

	recs, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	rows, dropped := l3.BuildTrainingSet(recs)
	if err := writeJSON(outFile, rows); err != nil {
		return err
	}

	L.Info(ctx, "training set written",
		"path", outFile,
		"rows", len(rows),
		"dropped", dropped,
	)
	return nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path) //nolint:gosec // G304: path is an operator-supplied output flag
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
