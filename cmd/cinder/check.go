package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/ezachrisen/cinder"
	"github.com/ezachrisen/cinder/config"
	"github.com/ezachrisen/cinder/rulefile"
	"github.com/ezachrisen/cinder/stream"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const roundSeparator = "======================================"

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the rules after every batch of context changes",
		Example: `  cinder check --rules rules.xml --changes changes.txt
  cinder check -c cinder.yaml --batch 50 --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: runCheck,
	}
	f := cmd.Flags()
	f.StringP("rules", "r", "", "rule file (.xml, .yaml or .yml)")
	f.StringP("changes", "f", "", "change file, one change per line")
	f.IntP("batch", "b", 1, "number of changes applied between checks")
	f.IntP("parallelism", "p", 0, "rules checked at the same time (0: unlimited)")
	f.BoolP("verbose", "v", false, "print a witness table for failing rules")
	f.Bool("diagnostics", false, "print the checking tree diagnostics of every rule at the end")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address")
	f.String("log-level", "", "log level (debug, info, warn, error)")
	return cmd
}

// loadConfig reads the configuration file and applies the flags that were set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("rules") {
		cfg.Rules, _ = f.GetString("rules")
	}
	if f.Changed("changes") {
		cfg.Changes, _ = f.GetString("changes")
	}
	if f.Changed("batch") {
		cfg.Check.BatchSize, _ = f.GetInt("batch")
	}
	if f.Changed("parallelism") {
		cfg.Check.Parallelism, _ = f.GetInt("parallelism")
	}
	if f.Changed("verbose") {
		cfg.Check.Verbose, _ = f.GetBool("verbose")
	}
	if f.Changed("metrics-addr") {
		cfg.Metrics.Addr, _ = f.GetString("metrics-addr")
	}
	if f.Changed("log-level") {
		cfg.Log.Level, _ = f.GetString("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Rules == "" {
		return nil, errors.New("no rule file: use --rules or set rules in the configuration")
	}
	return cfg, nil
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Changes == "" {
		return errors.New("no change file: use --changes or set changes in the configuration")
	}
	diagnostics, _ := cmd.Flags().GetBool("diagnostics")

	runID := uuid.New()
	logger, err := cfg.Log.Logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	logger = logger.With("run", runID.String())

	promReg := prometheus.NewRegistry()
	metrics, err := cinder.NewMetrics(promReg)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}
	if cfg.Metrics.Addr != "" {
		stop := serveMetrics(cfg.Metrics.Addr, promReg, logger)
		defer stop()
	}

	suite, err := buildSuite(cfg, logger, metrics)
	if err != nil {
		return err
	}

	changes, err := os.Open(cfg.Changes)
	if err != nil {
		return fmt.Errorf("opening change file: %w", err)
	}
	defer changes.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "[INFO] run %s: %s over %s\n", runID,
		english.Plural(suite.Len(), "rule", ""),
		english.Plural(len(suite.Registry().Names()), "context set", ""))

	start := time.Now()
	st, err := stream.Run(cmd.Context(), suite, changes, cfg.Check.BatchSize, func(r stream.Round) error {
		printRound(out, r, cfg.Check.Verbose)
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "[INFO] run time: %s, %s changes in %s, %s\n",
		time.Since(start).Round(time.Microsecond),
		humanize.Comma(int64(st.Changes)),
		english.Plural(st.Rounds, "round", ""),
		english.Plural(st.Failed, "failed check", ""))

	if diagnostics {
		for _, name := range suite.Names() {
			c, _ := suite.Checker(name)
			fmt.Fprintln(out, c.Diagnostics())
		}
	}
	return nil
}

// buildSuite loads the rules and creates a checker for each of them.
func buildSuite(cfg *config.Config, logger *slog.Logger, metrics *cinder.Metrics) (*cinder.Suite, error) {
	defs, sets, err := rulefile.Load(cfg.Rules)
	if err != nil {
		return nil, err
	}
	pred, err := newLibrary(cfg.Predicates)
	if err != nil {
		return nil, err
	}

	reg := cinder.NewRegistry()
	reg.Declare(sets...)
	suite := cinder.NewSuite(reg, cinder.Parallelism(cfg.Check.Parallelism), cinder.SuiteLogger(logger))
	for _, d := range defs {
		c, err := cinder.New(d.ID, d.Root, reg, pred,
			cinder.WithLogger(logger),
			cinder.WithMetrics(metrics),
			cinder.ValidatePredicates(true))
		if err != nil {
			return nil, err
		}
		if err := suite.Add(c); err != nil {
			return nil, err
		}
	}
	logger.Info("rules loaded", "file", cfg.Rules, "rules", len(defs), "sets", strings.Join(sets, ","))
	return suite, nil
}

// printRound writes the verdicts of one round in the order of the rule names.
func printRound(w io.Writer, r stream.Round, verbose bool) {
	fmt.Fprintf(w, "[INFO] schedule number: %d\n", r.Number)
	for _, rep := range r.Reports {
		io.WriteString(w, rep.Summary())
		if verbose && !rep.Pass {
			fmt.Fprintln(w, rep.String())
		}
	}
	fmt.Fprintln(w, roundSeparator)
}

// serveMetrics exposes the registry on addr/metrics until the returned
// function is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("shutting down metrics server", "error", err)
		}
	}
}
