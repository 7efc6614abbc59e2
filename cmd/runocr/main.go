package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joseph-ayodele/carbon-tracker/internal/app"
	"github.com/joseph-ayodele/carbon-tracker/internal/common"
	"github.com/joseph-ayodele/carbon-tracker/internal/document"
	"github.com/joseph-ayodele/carbon-tracker/internal/emission"
	"github.com/joseph-ayodele/carbon-tracker/internal/entity"
	"github.com/joseph-ayodele/carbon-tracker/internal/parsefields"
)

// runocr extracts text from one bill and prints what the pipeline would see,
// without persisting anything.
func main() {
	configPath := flag.String("config", "", "path to a TOML config file (defaults to $CONFIG_FILE)")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: runocr [-config file.toml] <bill.pdf|png|jpg|tiff>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger := common.NewLogger(cfg.Log, os.Stderr)

	kind, err := document.Classify(path)
	if err != nil {
		logger.Error("unsupported file", "path", path, "error", err)
		os.Exit(2)
	}
	st, err := os.Stat(path)
	if err != nil {
		logger.Error("stat file", "path", path, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	engine, err := app.NewEngine(cfg.OCR, logger)
	if err != nil {
		logger.Error("ocr engine", "error", err)
		os.Exit(1)
	}
	if err := engine.Init(ctx); err != nil {
		logger.Error("init ocr engine", "engine", engine.Name(), "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	ex := app.NewExtractor(cfg.OCR, "", engine, logger)
	start := time.Now()
	res, err := ex.Extract(ctx, entity.Document{Path: path, Kind: kind, FileName: st.Name(), FileSize: st.Size()})
	if err != nil {
		logger.Error("text extraction failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}
	logger.Info("text extraction OK",
		"source", res.Source,
		"pages", res.Pages,
		"bytes", len(res.Text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	fmt.Println(res.Text)

	info, ok := parsefields.NewExtractor(logger).Extract(res.Text)
	if !ok {
		logger.Warn("no bill fields found")
		return
	}
	fp, ok, err := emission.NewCalculator().Compute(info)
	switch {
	case err != nil:
		logger.Warn("emission failed", "error", err)
	case !ok:
		logger.Info("fields found, emission not computable", "amount", info.Amount, "date", info.Date)
	default:
		logger.Info("emission estimate",
			"utility_type", fp.UtilityType,
			"consumption", fp.Consumption,
			"carbon_emissions", fp.Emissions,
			"unit", fp.Unit,
		)
	}
}
