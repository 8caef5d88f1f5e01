package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sunghoon-yu/tradedocs/internal/batch"
	"github.com/sunghoon-yu/tradedocs/internal/classify"
	"github.com/sunghoon-yu/tradedocs/internal/common"
	"github.com/sunghoon-yu/tradedocs/internal/document"
	"github.com/sunghoon-yu/tradedocs/internal/engine"
	"github.com/sunghoon-yu/tradedocs/internal/export"
	"github.com/sunghoon-yu/tradedocs/internal/merge"
	"github.com/sunghoon-yu/tradedocs/internal/orchestrate"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir      = flag.String("dir", "", "directory or file to process (required; repeatable via trailing args)")
		out      = flag.String("out", "", "directory for per-file JSON artifacts (defaults to each input's directory)")
		xlsxOut  = flag.String("xlsx", "", "batch summary XLSX path (optional, defaults next to the input)")
		cfgPath  = flag.String("config", "", "YAML config path (optional)")
		parallel = flag.Bool("parallel", false, "process files concurrently")
		crossVal = flag.Int("cross-validate", 0, "run the top-N engines per segment and merge their answers")
	)
	flag.Parse()

	inputs := flag.Args()
	if *dir != "" {
		inputs = append([]string{*dir}, inputs...)
	}
	if len(inputs) == 0 {
		printError("Error: --dir or at least one input path is required\n")
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	cfg, err := common.LoadConfig(*cfgPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	cfg.Batch.Parallel = cfg.Batch.Parallel || *parallel
	if *crossVal > 0 {
		cfg.Orchestrate.CrossValidate = *crossVal
	}

	files, err := batch.DiscoverFiles(inputs)
	if err != nil {
		logger.Error("failed to discover input files", "error", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		printError("Error: no processable files under %s\n", strings.Join(inputs, ", "))
		os.Exit(1)
	}

	engines, claudeEngine := buildEngines(cfg, logger)
	if len(engines) == 0 {
		logger.Error("no engines configured")
		os.Exit(1)
	}

	var backend classify.Backend
	if claudeEngine != nil {
		backend = claudeEngine
	} else {
		logger.Warn("Anthropic API key not configured, ambiguous pages stay on keyword classification")
	}

	classifier := classify.NewClassifier(cfg.Classify, backend, logger)
	segmenter := classify.NewSegmenter(cfg.Classify, classifier, logger)
	orchestrator := orchestrate.New(cfg.Orchestrate, engines, logger)
	merger := merge.New(cfg.Merge, cfg.Engines, logger)
	loader := document.NewLoader(logger)
	pipeline := batch.NewPipeline(loader, segmenter, orchestrator, merger, cfg.Batch.FileDeadline, logger)
	controller := batch.NewController(cfg.Batch, pipeline, logger)

	report := controller.Run(ctx, files)

	exporter := export.NewService(logger)
	if *out != "" {
		if err := os.MkdirAll(*out, 0755); err != nil {
			logger.Error("failed to create output directory", "path", *out, "error", err)
			os.Exit(1)
		}
	}
	for _, fileReport := range report.Files {
		b, err := exporter.FileReportJSON(fileReport)
		if err != nil {
			logger.Error("failed to render file report", "file", fileReport.FilePath, "error", err)
			continue
		}
		target := artifactPath(fileReport.FilePath, *out)
		if err := os.WriteFile(target, b, 0644); err != nil {
			logger.Error("failed to write file report", "path", target, "error", err)
		}
	}

	xlsxPath := *xlsxOut
	if xlsxPath == "" {
		xlsxPath = filepath.Join(filepath.Dir(files[0]), "tradedocs-summary.xlsx")
	}
	if b, err := exporter.BatchSummaryXLSX(report); err != nil {
		logger.Error("failed to render batch summary", "error", err)
	} else if err := os.WriteFile(xlsxPath, b, 0644); err != nil {
		logger.Error("failed to write batch summary", "path", xlsxPath, "error", err)
	}

	logger.Info("batch complete",
		"files", len(report.Files),
		"completed", report.Completed,
		"partial", report.Partial,
		"failed", report.Failed,
		"summary", xlsxPath,
	)

	if report.Failed > 0 {
		os.Exit(1)
	}
}

// buildEngines instantiates every configured engine. The Claude
// engine is returned separately so it can double as the classifier
// backend.
func buildEngines(cfg *common.Config, logger *slog.Logger) ([]engine.Engine, *engine.ClaudeEngine) {
	var engines []engine.Engine
	var claudeEngine *engine.ClaudeEngine

	for _, spec := range cfg.Engines {
		switch spec.ID {
		case "docai":
			if cfg.DocAI.APIKey == "" {
				logger.Warn("document AI key not configured, engine disabled", "engine", spec.ID)
				continue
			}
			engines = append(engines, engine.NewDocAIEngine(spec, cfg.DocAI, logger))
		case "claude":
			if cfg.Claude.APIKey == "" {
				logger.Warn("Anthropic API key not configured, engine disabled", "engine", spec.ID)
				continue
			}
			claudeEngine = engine.NewClaudeEngine(spec, cfg.Claude, logger)
			engines = append(engines, claudeEngine)
		case "pdftext":
			engines = append(engines, engine.NewPDFTextEngine(spec, logger))
		case "tesseract":
			engines = append(engines, engine.NewTesseractEngine(spec, cfg.OCR, logger))
		default:
			logger.Warn("unknown engine id in configuration, skipped", "engine", spec.ID)
		}
	}
	return engines, claudeEngine
}

// artifactPath places the per-file JSON next to its input unless an
// output directory was given.
func artifactPath(inputPath, outDir string) string {
	name := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath)) + ".tradedocs.json"
	if outDir != "" {
		return filepath.Join(outDir, name)
	}
	return filepath.Join(filepath.Dir(inputPath), name)
}
