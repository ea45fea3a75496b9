package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"superbase-golang/superbase/catalog"
	"superbase-golang/superbase/convert"
	"superbase-golang/superbase/sqlout"
)

func main() {
	var (
		cfg         convert.Config
		out         string
		metricsFile string
		synthesize  string
	)

	cfg.RegisterFlagsAndApplyDefaults("", flag.CommandLine)
	flag.StringVar(&out, "out", "superbase.sql", "File the SQL script is written to")
	flag.StringVar(&metricsFile, "metrics-file", "", "Write conversion metrics in Prometheus text format to this file")
	flag.StringVar(&synthesize, "synthesize", "", "Write a demo .SBD/.SBF pair into this directory and exit")
	flag.Parse()

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "run_id", uuid.NewString())

	if synthesize != "" {
		if err := writeDemo(synthesize); err != nil {
			level.Error(logger).Log("msg", "failed to write demo table", "dir", synthesize, "err", err)
			os.Exit(1)
		}
		level.Info(logger).Log("msg", "wrote demo table", "dir", synthesize, "table", demoTable)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		level.Info(logger).Log("msg", "received shutdown signal")
		cancel()
	}()

	reg := prometheus.NewRegistry()
	converter, err := convert.New(cfg, logger, convert.NewMetrics(reg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	fsys := os.DirFS(cfg.Path)
	cat, err := catalog.Find(fsys, ".")
	if err != nil {
		level.Error(logger).Log("msg", "failed to search for tables", "path", cfg.Path, "err", err)
		os.Exit(1)
	}
	if cat.Len() == 0 {
		level.Warn(logger).Log("msg", "no tables found", "path", cfg.Path)
		return
	}
	level.Info(logger).Log("msg", "found tables", "count", cat.Len(), "complete", len(cat.Complete()), "path", cfg.Path)

	results := converter.ConvertAll(ctx, fsys, cat.Pairs())

	written, err := writeScript(out, results)
	if err != nil {
		level.Error(logger).Log("msg", "failed to write SQL script", "out", out, "err", err)
		os.Exit(1)
	}
	level.Info(logger).Log("msg", "wrote SQL script", "out", out, "tables", written)

	if metricsFile != "" {
		if err := prometheus.WriteToTextfile(metricsFile, reg); err != nil {
			level.Error(logger).Log("msg", "failed to write metrics", "file", metricsFile, "err", err)
		}
	}

	summary := summarize(results)
	printSummary(os.Stdout, results, summary)
	if summary.failed > 0 {
		os.Exit(1)
	}
}

func writeScript(name string, results []convert.Result) (int, error) {
	f, err := os.Create(name)
	if err != nil {
		return 0, err
	}

	script := sqlout.NewScriptWriter(f)
	written, err := convert.WriteTables(script, results)
	if err != nil {
		f.Close()
		return written, err
	}
	if err := script.Close(); err != nil {
		f.Close()
		return written, err
	}
	return written, f.Close()
}
