package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kem-osh/write-wellspring/internal/bootstrap"
	"github.com/kem-osh/write-wellspring/internal/config"
	"github.com/kem-osh/write-wellspring/internal/core/domain"
	"github.com/kem-osh/write-wellspring/internal/observability/logging"
)

const serviceName = "wellspring-ingest"

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	quiet := flag.Bool("quiet", false, "suppress progress output, print only the final report")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall ingestion deadline")
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: ingest [flags] <file>...")
		flag.PrintDefaults()
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}

	logger := logging.NewTextLogger(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	app, err := bootstrap.New(ctx, cfg, serviceName, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap: %v\n", err)
		return 1
	}
	defer app.Close()

	states, unsubscribe := app.Uploads.Subscribe()
	defer unsubscribe()

	files, closeFiles, err := openFiles(paths)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ids, err := app.Uploads.Submit(ctx, files)
	closeFiles()
	if err != nil {
		fmt.Fprintf(os.Stderr, "submit: %v\n", err)
		return 1
	}
	logger.Info("batch_submitted", slog.Int("files", len(ids)))

	final, err := waitForCompletion(ctx, states, len(ids), *quiet)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	report(os.Stdout, final)
	if final.Counts.Error > 0 {
		return 1
	}
	return 0
}

func openFiles(paths []string) ([]domain.RawFile, func(), error) {
	handles := make([]*os.File, 0, len(paths))
	closeAll := func() {
		for _, handle := range handles {
			_ = handle.Close()
		}
	}

	files := make([]domain.RawFile, 0, len(paths))
	for _, path := range paths {
		handle, err := os.Open(path)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("open %s: %w", path, err)
		}
		info, err := handle.Stat()
		if err != nil {
			_ = handle.Close()
			closeAll()
			return nil, nil, fmt.Errorf("stat %s: %w", path, err)
		}
		handles = append(handles, handle)
		files = append(files, domain.RawFile{
			Name:    filepath.Base(path),
			Size:    info.Size(),
			Content: handle,
		})
	}
	return files, closeAll, nil
}

func waitForCompletion(ctx context.Context, states <-chan domain.UploadState, total int, quiet bool) (domain.UploadState, error) {
	var last domain.UploadState
	for {
		select {
		case <-ctx.Done():
			return last, fmt.Errorf("ingestion interrupted: %w", ctx.Err())
		case state, ok := <-states:
			if !ok {
				return last, fmt.Errorf("upload state stream closed")
			}
			last = state
			if !quiet {
				slog.Info("upload_progress",
					slog.Int("overall", state.OverallProgress),
					slog.Int("complete", state.Counts.Complete),
					slog.Int("error", state.Counts.Error),
					slog.Int("active", state.Counts.Uploading+state.Counts.Processing),
					slog.Int("queued", state.Counts.Queued),
				)
			}
			if len(state.Items) >= total && state.Counts.Complete+state.Counts.Error >= total {
				return state, nil
			}
		}
	}
}

func report(w io.Writer, state domain.UploadState) {
	fmt.Fprintf(w, "processed %d files: %d complete, %d failed\n",
		len(state.Items), state.Counts.Complete, state.Counts.Error)
	for _, item := range state.Items {
		switch {
		case item.Status == domain.StatusComplete:
			fmt.Fprintf(w, "  ok    %s -> %s\n", item.SourceFile.Name, item.DocumentID)
		case item.Failure != nil:
			fmt.Fprintf(w, "  fail  %s: %s (%s)\n", item.SourceFile.Name, item.Failure.Message, item.Failure.Category)
			if item.Failure.Suggestion != "" {
				fmt.Fprintf(w, "        %s\n", item.Failure.Suggestion)
			}
		default:
			fmt.Fprintf(w, "  %-5s %s\n", item.Status, item.SourceFile.Name)
		}
	}
}
