package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/purchasing-tools/po-extract/constants"
	"github.com/purchasing-tools/po-extract/internal/common"
	"github.com/purchasing-tools/po-extract/internal/docintel"
	"github.com/purchasing-tools/po-extract/internal/export"
	"github.com/purchasing-tools/po-extract/internal/history"
	"github.com/purchasing-tools/po-extract/internal/pipeline"
	"github.com/purchasing-tools/po-extract/internal/split"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		file       = flag.String("file", "", "multi-page PDF to split and analyze")
		dir        = flag.String("dir", "", "directory of per-page PDFs to analyze")
		kindStr    = flag.String("kind", "purchase_order", "document kind: purchase_order or invoice")
		out        = flag.String("out", "", "output XLSX path (defaults next to the input)")
		provenance = flag.Bool("provenance", false, "tag every exported row with its source page")
		histPath   = flag.String("history", "", "run-history sqlite path (overrides HISTORY_DB)")
	)
	flag.Parse()

	if (*file == "") == (*dir == "") {
		printError("Error: exactly one of --file or --dir is required\n")
		os.Exit(1)
	}
	kind, ok := constants.ParseDocKind(*kindStr)
	if !ok {
		printError("Error: unknown --kind %q\n", *kindStr)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	cfg := common.LoadConfig()
	if *histPath != "" {
		cfg.History.Path = *histPath
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Collect pages
	var pages []string
	var err error
	input := *dir
	if *file != "" {
		input = *file
		splitDir := filepath.Join(os.TempDir(), "po-extract-pages")
		pages, err = split.SplitIntoPages(*file, splitDir, logger)
	} else {
		pages, err = split.CollectPages(*dir, logger)
	}
	if err != nil {
		logger.Error("failed to collect pages", "error", err)
		os.Exit(1)
	}
	if len(pages) == 0 {
		printError("Error: no PDF pages found in %s\n", input)
		os.Exit(1)
	}

	if *out == "" {
		base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		if base == "" || base == "." {
			base = string(kind)
		}
		*out = filepath.Join(filepath.Dir(input), base+".xlsx")
	}

	// Optional run history
	var hist *history.Store
	if cfg.History.Path != "" {
		hist, err = history.Open(ctx, cfg.History.Path, logger)
		if err != nil {
			logger.Error("failed to open run history", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := hist.Close(); err != nil {
				logger.Warn("history close failed", "error", err)
			}
		}()
	}

	// Wire the driver
	analyzer := docintel.NewClient(cfg.Service, logger)
	proc := pipeline.NewProcessor(logger, analyzer, cfg.Pacing, hist)
	proc.Provenance = *provenance

	pageFiles := make([]pipeline.PageFile, 0, len(pages))
	for _, p := range pages {
		pageFiles = append(pageFiles, pipeline.PageFile{Path: p, Name: filepath.Base(p)})
	}

	result, err := proc.Run(ctx, kind, pageFiles)
	if err != nil {
		logger.Error("run aborted", "error", err)
		os.Exit(1)
	}

	// Report permanent failures individually
	for _, f := range result.Failures {
		printError("FAILED %s: %s\n", f.Source, f.Message)
	}

	if len(result.Record.Items) == 0 {
		printError("No line items extracted; no spreadsheet written\n")
		if !result.Clean() {
			fmt.Printf("Run completed with %d permanent error(s)\n", len(result.Failures))
		}
		os.Exit(0)
	}

	data, err := export.NewService(logger).WriteWorkbook(result.Record)
	if err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		logger.Error("failed to write workbook", "path", *out, "error", err)
		os.Exit(1)
	}

	if result.Clean() {
		fmt.Printf("Run completed cleanly: %d page(s), %d item(s) -> %s\n",
			result.Analyzed, len(result.Record.Items), *out)
	} else {
		fmt.Printf("Run completed with %d permanent error(s): %d of %d page(s) exported -> %s\n",
			len(result.Failures), result.Analyzed, result.Pages, *out)
	}
}
