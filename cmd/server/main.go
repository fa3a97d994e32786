// Package main provides the CLI entrypoint for the AI adoption dashboard backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"

	"aidash/internal/api"
	"aidash/internal/config"
	"aidash/internal/engine"
	"aidash/internal/filters"
	"aidash/internal/models"
	"aidash/internal/session"
)

// settings is the merged result of defaults, config file and flags.
type settings struct {
	ConfigPath string
	Addr       string
	Source     string
	Timeout    time.Duration
	SessionTTL time.Duration
	LogLevel   string
}

var opts = settings{
	Addr:       config.DefaultAddr,
	Source:     engine.DefaultSource,
	Timeout:    config.DefaultTimeout,
	SessionTTL: config.DefaultSessionTTL,
	LogLevel:   config.DefaultLogLevel,
}

var (
	exportOut     string
	exportFormat  string
	exportFilters []string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "aidash",
		Short:         "AI adoption metrics dashboard backend",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadSettings(cmd)
		},
		RunE: runServeCmd,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.ConfigPath, "config", config.DefaultConfigPath(), "path to the TOML config file")
	pf.StringVar(&opts.Source, "source", opts.Source, "dataset CSV: local path or http(s) URL")
	pf.DurationVar(&opts.Timeout, "timeout", opts.Timeout, "timeout for fetching a remote dataset")
	pf.StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "debug, info, warn or error")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newVocabCmd())
	return rootCmd
}

func loadSettings(cmd *cobra.Command) error {
	fileCfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	flags := cmd.Flags()
	applyStringConfig(flags.Changed("addr"), &opts.Addr, fileCfg.Server.Addr)
	applyStringConfig(flags.Changed("source"), &opts.Source, fileCfg.Dataset.Source)
	applyDurationConfig(flags.Changed("timeout"), &opts.Timeout, fileCfg.Dataset.Timeout)
	applyDurationConfig(flags.Changed("session-ttl"), &opts.SessionTTL, fileCfg.Session.TTL)
	applyStringConfig(flags.Changed("log-level"), &opts.LogLevel, fileCfg.Log.Level)

	lvl, err := parseLogLevel(opts.LogLevel)
	if err != nil {
		return err
	}
	// stdout is reserved for command output such as CSV exports.
	log.SetOutput(os.Stderr)
	log.SetLevel(lvl)
	return nil
}

// applyStringConfig uses the file value only when the flag was not set explicitly.
func applyStringConfig(flagSet bool, target *string, value *string) {
	if flagSet || value == nil {
		return
	}
	*target = *value
}

func applyDurationConfig(flagSet bool, target *time.Duration, value *config.Duration) {
	if flagSet || value == nil {
		return
	}
	*target = value.Duration
}

func parseLogLevel(s string) (log.Lvl, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DEBUG, nil
	case "info", "":
		return log.INFO, nil
	case "warn", "warning":
		return log.WARN, nil
	case "error":
		return log.ERROR, nil
	case "off":
		return log.OFF, nil
	}
	return log.INFO, fmt.Errorf("invalid log level %q", s)
}

// --- serve ---

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the dataset and serve the dashboard API",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&opts.Addr, "addr", opts.Addr, "listen address")
	cmd.Flags().DurationVar(&opts.SessionTTL, "session-ttl", opts.SessionTTL, "drop sessions idle for longer than this (0 keeps them)")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Initialize Echo
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(log.Level())
	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	// 2. Handler starts with no data; data endpoints return 503 until the load finishes
	sessions := session.NewManager(models.Vocabulary{}, opts.SessionTTL)
	h := api.NewHandler(nil, sessions)
	h.RegisterRoutes(e)

	// 3. Load in background. A failed load is fatal: nothing is served from partial data.
	loadErr := make(chan error, 1)
	go func() {
		store, err := engine.Open(ctx, opts.Source, opts.Timeout)
		if err != nil {
			loadErr <- err
			return
		}
		h.SetStore(store)
		log.Infof("Dataset ready: %s rows", humanize.Comma(int64(store.Len())))
	}()

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("Server ready on %s (dataset loading in background...)", opts.Addr)
		serveErr <- e.Start(opts.Addr)
	}()

	var runErr error
	select {
	case err := <-loadErr:
		log.Errorf("dataset load failed: %v", err)
		runErr = err
	case err := <-serveErr:
		runErr = err
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warnf("shutdown: %v", err)
	}
	return runErr
}

// --- export ---

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered rows to CSV or Parquet",
		Long: "Write the filtered rows, sorted by Year and Country, to CSV or Parquet.\n" +
			"Filters use dim=value[,value...]; a dimension without a filter stays fully selected.",
		Example: "  aidash export --filter country=USA,Brazil --filter tool=ChatGPT -o out.csv",
		Args:    cobra.NoArgs,
		RunE:    runExportCmd,
	}
	cmd.Flags().StringVarP(&exportOut, "output", "o", "-", "output file, - for stdout")
	cmd.Flags().StringVar(&exportFormat, "format", "csv", "csv or parquet")
	cmd.Flags().StringArrayVar(&exportFilters, "filter", nil, "dimension filter dim=value[,value...] (repeatable)")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	store, err := engine.Open(cmd.Context(), opts.Source, opts.Timeout)
	if err != nil {
		return err
	}
	state := filters.New(store.Vocabularies())
	if err := applyFilterFlags(state, exportFilters); err != nil {
		return err
	}
	view := store.Filter(state.Snapshot())

	format := strings.ToLower(exportFormat)
	if format != "csv" && format != "parquet" {
		return fmt.Errorf("unsupported format %q", exportFormat)
	}

	out := cmd.OutOrStdout()
	var f *os.File
	if exportOut != "-" {
		f, err = os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		out = f
	}

	if format == "parquet" {
		err = store.WriteParquet(out, view)
	} else {
		err = store.WriteCSV(out, view)
	}
	if f != nil {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output: %w", cerr)
		}
	}
	if err != nil {
		return err
	}
	log.Infof("Exported %s of %s rows", humanize.Comma(int64(len(view))), humanize.Comma(int64(store.Len())))
	return nil
}

// applyFilterFlags turns repeated dim=v1,v2 flags into explicit selections.
func applyFilterFlags(state *filters.State, args []string) error {
	for _, arg := range args {
		name, values, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("invalid filter %q: expected dim=value[,value...]", arg)
		}
		dim, ok := models.ParseDimension(name)
		if !ok {
			return fmt.Errorf("invalid filter %q: %w", arg, models.ErrUnknownDimension)
		}
		var list []string
		if values != "" {
			for _, v := range strings.Split(values, ",") {
				list = append(list, strings.TrimSpace(v))
			}
		}
		if err := state.SetSelection(dim, list); err != nil {
			return err
		}
	}
	return nil
}

// --- vocab ---

func newVocabCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vocab",
		Short: "Print the distinct values of each dimension and a dataset summary",
		Args:  cobra.NoArgs,
		RunE:  runVocabCmd,
	}
}

func runVocabCmd(cmd *cobra.Command, _ []string) error {
	store, err := engine.Open(cmd.Context(), opts.Source, opts.Timeout)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	vocab := store.Vocabularies()
	for _, dim := range models.Dimensions {
		values := vocab.For(dim)
		fmt.Fprintf(out, "%s (%d)\n", dim, len(values))
		for _, v := range values {
			fmt.Fprintf(out, "  %s\n", v)
		}
	}

	sum := store.Summary(store.All())
	fmt.Fprintf(out, "\nRows: %s\n", humanize.Comma(int64(sum.Rows)))
	fmt.Fprintf(out, "%s: %s\n", models.VolumeColumn, humanize.CommafWithDigits(sum.TotalVolume, 2))
	for _, m := range models.Metrics {
		if v, ok := sum.Means[m]; ok {
			fmt.Fprintf(out, "mean %s: %.2f\n", m, v)
		}
	}
	return nil
}
