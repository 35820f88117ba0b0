package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"gestor/internal/backend"
	"gestor/internal/cli"
	"gestor/internal/clock"
	"gestor/internal/config"
	"gestor/internal/log"
	"gestor/internal/services"
	"gestor/internal/sheets"
	"gestor/internal/sheets/google"
)

func main() {
	var req services.ReportRequest
	flag.StringVar(&req.Owner, "owner", "", "owner whose summary is exported (required)")
	flag.StringVar(&req.Period, "period", "monthly", "weekly, monthly or yearly")
	flag.StringVar(&req.WalletID, "wallet", "", "restrict the summary to one wallet")
	flag.StringVar(&req.ReferenceDate, "date", "", "reference date YYYY-MM-DD (default today)")
	timeout := flag.Duration("timeout", 30*time.Second, "overall export timeout")
	flag.Parse()

	cfg := cli.LoadConfig()
	logger := cli.SetupLogger(cfg)
	cli.MustValidate(logger, cfg.ValidateExport)

	if req.Owner == "" {
		fmt.Fprintln(os.Stderr, "missing -owner")
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	ref, err := run(ctx, cfg, req, logger)
	if err != nil {
		logger.Error("Export failed", log.FieldError, err, log.FieldOperation, log.OpExport)
		os.Exit(1)
	}
	fmt.Println(ref)
}

func run(ctx context.Context, cfg *config.Config, req services.ReportRequest, logger *log.Logger) (string, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return "", err
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return "", fmt.Errorf("create backend: %w", err)
	}
	if result.Cleanup != nil {
		defer result.Cleanup()
	}

	writer, err := google.New(ctx, google.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		return "", err
	}

	wall := clock.NewReal()
	reports := services.NewReportService(result.Backend, result.Backend, wall, logger)
	return export(ctx, reports, writer, req, wall)
}

// export computes one summary and writes it as a spreadsheet row.
func export(ctx context.Context, reports *services.ReportService, w sheets.ReportWriter, req services.ReportRequest, c clock.Clock) (string, error) {
	summary, err := reports.Summary(ctx, req)
	if err != nil {
		return "", fmt.Errorf("summary: %w", err)
	}
	row := sheets.NewSummaryRow(req.Owner, req.WalletID, summary, c.Now())
	ref, err := w.UpsertSummary(ctx, row)
	if err != nil {
		return "", fmt.Errorf("write row: %w", err)
	}
	return ref, nil
}
