package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/labelguard/compliance-cli/internal/model"
)

var (
	batchFile  string
	batchLimit int
)

// batchItem is one row of the input file: a listing URL and an optional
// category override.
type batchItem struct {
	URL      string
	Category string
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Check listings from a CSV or XLSX file",
	Long:  "Reads listing URLs (column 1) with optional category paths (column 2), fetches and checks each with bounded concurrency, and prints a per-listing verdict summary.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		items, err := readBatchFile(batchFile)
		if err != nil {
			return err
		}
		if batchLimit > 0 && len(items) > batchLimit {
			items = items[:batchLimit]
		}
		if len(items) == 0 {
			zap.L().Info("no listings in batch file")
			return nil
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		return processBatch(ctx, env, items, cfg.Batch.MaxConcurrentListings)
	},
}

func processBatch(ctx context.Context, env *pipelineEnv, items []batchItem, concurrency int) error {
	if concurrency <= 0 {
		concurrency = 5
	}
	zap.L().Info("processing batch",
		zap.Int("listings", len(items)),
		zap.Int("concurrency", concurrency),
	)

	var compliant, nonCompliant, indeterminate, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, item := range items {
		item := item
		g.Go(func() error {
			verdict, err := checkOne(gctx, env, item)
			switch {
			case err != nil:
				failed.Add(1)
				zap.L().Error("batch: listing failed",
					zap.String("url", item.URL),
					zap.Error(err),
				)
				fmt.Printf("%s\tFAILED\t%v\n", item.URL, err)
			default:
				switch verdict {
				case model.VerdictCompliant:
					compliant.Add(1)
				case model.VerdictNonCompliant:
					nonCompliant.Add(1)
				default:
					indeterminate.Add(1)
				}
				fmt.Printf("%s\t%s\n", item.URL, verdict)
			}
			// One bad listing never stops the batch; cancellation does.
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch interrupted")
	}

	zap.L().Info("batch complete",
		zap.Int64("compliant", compliant.Load()),
		zap.Int64("non_compliant", nonCompliant.Load()),
		zap.Int64("indeterminate", indeterminate.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return nil
}

func checkOne(ctx context.Context, env *pipelineEnv, item batchItem) (model.Verdict, error) {
	listing, err := env.Marketplace.Fetch(ctx, item.URL)
	if err != nil {
		return "", err
	}
	if item.Category != "" {
		listing.Category = item.Category
	}
	report, err := env.Pipeline.Run(ctx, listing)
	if err != nil {
		return "", err
	}
	return report.Verdict, nil
}

// readBatchFile loads listing rows from a CSV or XLSX file. A leading
// "url" header row is skipped.
func readBatchFile(path string) ([]batchItem, error) {
	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXLSXRows(path)
	default:
		rows, err = readCSVRows(path)
	}
	if err != nil {
		return nil, err
	}

	var items []batchItem
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		url := strings.TrimSpace(row[0])
		if url == "" {
			continue
		}
		if i == 0 && strings.EqualFold(url, "url") {
			continue
		}
		item := batchItem{URL: url}
		if len(row) > 1 {
			item.Category = strings.TrimSpace(row[1])
		}
		items = append(items, item)
	}
	return items, nil
}

func readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open batch file")
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "parse batch csv")
	}
	return rows, nil
}

func readXLSXRows(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "open batch xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("batch xlsx has no sheets")
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "CSV or XLSX file with listing URLs (required)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of listings to process (0 = all)")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}
