// Command qrscan decodes QR codes in photos of transfer documents, prints the extracted
// rows and optionally syncs them into the configured store.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/jo-hoe/qrsheet/internal/backend"
	"github.com/jo-hoe/qrsheet/internal/backend/model"
	"github.com/jo-hoe/qrsheet/internal/core"
)

const (
	exitOK         = 0
	exitSyncFailed = 1
	exitUsage      = 2
)

func getConfigPath() string {
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		return configPath
	}
	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return filepath.Join(cwd, "config.yaml")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("qrscan", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.StringP("config", "c", getConfigPath(), "Path to the YAML config file")
	doSync := flags.Bool("sync", false, "Append the extracted rows to the configured store")
	asJSON := flags.Bool("json", false, "Print the report as JSON")
	flags.Usage = func() {
		fmt.Fprintf(stderr, "usage: qrscan [--config path] [--sync] [--json] image...\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}
	paths := flags.Args()
	if len(paths) == 0 {
		flags.Usage()
		return exitUsage
	}

	if err := core.LoadDotEnv(); err != nil {
		fmt.Fprintln(stderr, err)
	}
	config, err := core.LoadConfigOrDefault(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: config.SlogLevel()})))

	service, err := core.NewCoreService(ctx, config)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	defer service.Close()

	images := readImages(paths, stderr)
	uploadTimestamp := service.UploadTimestamp()
	results, rows, summary := service.ProcessBatch(ctx, images, uploadTimestamp)

	response := backend.ScanResponse{
		UploadedDate: uploadTimestamp,
		Results:      make([]backend.ImageReport, 0, len(results)),
		Rows:         rows,
		Summary:      summary,
	}
	for _, result := range results {
		response.Results = append(response.Results, backend.NewImageReport(result))
	}

	code := exitOK
	if *doSync {
		storeURL, report, err := service.Sync(ctx, rows)
		if err != nil {
			response.SyncError = err.Error()
			code = exitSyncFailed
		} else {
			response.StoreURL = storeURL
			response.Sync = &report
		}
	}

	if *asJSON {
		encoder := json.NewEncoder(stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			fmt.Fprintln(stderr, err)
		}
	} else {
		writeReport(stdout, response)
	}
	return code
}

// readImages reads every path; unreadable files are reported and skipped.
func readImages(paths []string, stderr io.Writer) []model.RawImage {
	images := make([]model.RawImage, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", path, err)
			continue
		}
		images = append(images, model.RawImage{Filename: filepath.Base(path), Data: data})
	}
	return images
}

func writeReport(w io.Writer, response backend.ScanResponse) {
	for _, result := range response.Results {
		duration := time.Duration(result.DurationMillis) * time.Millisecond
		switch result.Status {
		case model.StatusError:
			fmt.Fprintf(w, "%s: error: %s\n", result.File, result.Error)
		case model.StatusNoQR:
			fmt.Fprintf(w, "%s: no QR codes found (%s)\n", result.File, duration)
		default:
			fmt.Fprintf(w, "%s: %d QR code(s), %d row(s) (%s)\n", result.File, result.QRCount, result.RowsCount, duration)
		}
		for _, urlErr := range result.URLErrors {
			fmt.Fprintf(w, "  QR%d %s: %s failed: %s\n", urlErr.Index, urlErr.URL, urlErr.Stage, urlErr.Message)
		}
	}

	for _, row := range response.Rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", row.DocumentDate, row.Seq, row.PlaceNumber, row.Weight, row.Order)
	}

	s := response.Summary
	fmt.Fprintf(w, "files: %d, successful: %d, QR codes: %d, rows: %d\n", s.Files, s.Successful, s.QRCodes, s.Rows)

	switch {
	case response.SyncError != "":
		fmt.Fprintf(w, "sync failed: %s\n", response.SyncError)
	case response.Sync != nil:
		fmt.Fprintf(w, "synced to %s: %d appended, %d duplicate(s)\n", response.StoreURL, response.Sync.Appended, response.Sync.Duplicates)
	}
}
