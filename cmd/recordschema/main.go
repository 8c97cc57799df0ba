/*
Recordschema prints the columns and row counts of database tables as YAML,
as seen by a record client.

Usage:

	recordschema [flags] TABLE...

The connection is read from the configuration file and RECORD_ environment
overrides; see package config.

The flags are:

	-c, --config PATH
		Use the given YAML file instead of './record.yaml'.

	-n, --counts
		Also report the number of rows of each table.

	-v, --verbose
		Log at debug level to stderr, including every statement.
*/
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/syssam/record"
	"github.com/syssam/record/config"
	"github.com/syssam/record/connect"
	"github.com/syssam/record/dialect"
	"github.com/syssam/record/internal/logger"
)

const (
	exitSuccess = 0
	exitError   = 1
	exitUsage   = 2
)

// Report is the YAML document written to stdout.
type Report struct {
	Dialect string        `yaml:"dialect"`
	Tables  []TableReport `yaml:"tables"`
}

// TableReport describes one table.
type TableReport struct {
	Name    string           `yaml:"name"`
	Columns []dialect.Column `yaml:"columns"`
	Rows    *int64           `yaml:"rows,omitempty"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("recordschema", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	confPath := flags.StringP("config", "c", "record.yaml", "Path to configuration file")
	counts := flags.BoolP("counts", "n", false, "Report row counts")
	verbose := flags.BoolP("verbose", "v", false, "Log statements to stderr")
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}
	if flags.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: recordschema [flags] TABLE...")
		return exitUsage
	}

	cfg, err := config.Load(*confPath)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return exitError
	}
	logOpts := logger.Options{Dir: cfg.Log.Dir, Level: cfg.Log.Level, Console: cfg.Log.Console}
	if *verbose {
		logOpts.Level = "debug"
		logOpts.Console = true
		cfg.Stats.Debug = true
	}
	log, err := logger.New(logOpts)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return exitError
	}
	defer log.Sync()

	s, err := connect.Open(ctx, cfg, connect.WithLogger(log))
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return exitError
	}
	defer s.Close()

	report, err := inspect(ctx, s.Client, flags.Args(), *counts)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return exitError
	}
	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return exitError
	}
	if err := enc.Close(); err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return exitError
	}
	return exitSuccess
}

// inspect builds the report of tables on c.
func inspect(ctx context.Context, c *record.Client, tables []string, counts bool) (*Report, error) {
	report := &Report{Dialect: c.Dialect()}
	for _, table := range tables {
		t := record.Define(record.TypeConfig{Name: table, Table: table})
		cols, err := c.Schema(ctx, t)
		if err != nil {
			return nil, err
		}
		tr := TableReport{Name: table, Columns: cols}
		if counts {
			n, err := c.Model(t).Count(ctx, nil, nil)
			if err != nil {
				return nil, err
			}
			tr.Rows = &n
		}
		report.Tables = append(report.Tables, tr)
	}
	return report, nil
}
