package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"rfm-segments/pkg/calculator"
	"rfm-segments/pkg/config"
)

// sourceFlags override the [source] section and the reference date.
type sourceFlags struct {
	referenceDate string
	kind          string
	sheet         string
	encoding      string
	delimiter     string
	dsn           string
	table         string
	progress      bool
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.referenceDate, "reference-date", "", "reference date for recency, YYYY-MM-DD (default 2011-12-11)")
	fs.StringVar(&f.kind, "kind", "", "source kind: csv, xlsx, mysql, postgres (default inferred)")
	fs.StringVar(&f.sheet, "sheet", "", "workbook sheet for xlsx sources")
	fs.StringVar(&f.encoding, "encoding", "", "csv encoding: utf-8, latin1, windows-1252")
	fs.StringVar(&f.delimiter, "delimiter", "", "csv field delimiter")
	fs.StringVar(&f.dsn, "dsn", "", "database DSN (mariadb://, mysql:// or postgres://)")
	fs.StringVar(&f.table, "table", "", "database table holding order lines")
	fs.BoolVar(&f.progress, "progress", false, "show progress bars on stderr")
}

// apply copies the flags that were set onto cfg, then re-validates it.
func (f *sourceFlags) apply(cmd *cobra.Command, args []string, cfg *config.Config) error {
	fs := cmd.Flags()
	if len(args) > 0 {
		cfg.Source.Path = args[0]
		if !fs.Changed("dsn") {
			cfg.Source.DSN = ""
		}
	}
	if fs.Changed("reference-date") {
		ref, err := calculator.ParseReferenceDate(f.referenceDate)
		if err != nil {
			return fmt.Errorf("--reference-date: %w", err)
		}
		cfg.ReferenceDate = ref
	}
	if fs.Changed("kind") {
		cfg.Source.Kind = f.kind
	}
	if fs.Changed("sheet") {
		cfg.Source.Sheet = f.sheet
	}
	if fs.Changed("encoding") {
		cfg.Source.Encoding = f.encoding
	}
	if fs.Changed("delimiter") {
		cfg.Source.Delimiter = f.delimiter
	}
	if fs.Changed("dsn") {
		cfg.Source.DSN = f.dsn
	}
	if fs.Changed("table") {
		cfg.Source.Table = f.table
	}
	if fs.Changed("progress") {
		cfg.Source.Progress = f.progress
	}
	if cfg.Source.Path == "" && cfg.Source.DSN == "" {
		return fmt.Errorf("no source: pass a file path, --dsn, or set source.path in the config")
	}
	return cfg.Validate()
}
