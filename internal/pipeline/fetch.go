package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"soql-workbench/internal/model"
	"soql-workbench/internal/upstream"
)

// DefaultMaxFetchIterations bounds the number of page fetches of one query.
const DefaultMaxFetchIterations = 1000

// Fetcher drains a cursor-paginated upstream query into one result set.
type Fetcher struct {
	client        upstream.Client
	logger        *zap.Logger
	maxIterations int
}

// NewFetcher creates a fetcher. maxIterations <= 0 selects DefaultMaxFetchIterations.
func NewFetcher(client upstream.Client, logger *zap.Logger, maxIterations int) *Fetcher {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxFetchIterations
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{client: client, logger: logger, maxIterations: maxIterations}
}

// ------------------- Bulk fetch -------------------

// Fetch runs soql and follows continuation handles until the upstream is
// done, recordLimit records are accumulated (recordLimit 0 = unlimited), or
// the iteration cap is hit. Pages are fetched strictly one after another.
//
// Any upstream failure aborts the whole fetch: pages already accumulated are
// discarded and the upstream error is returned unchanged. Platform failures
// are *upstream.Error values and render as "CODE: message".
func (f *Fetcher) Fetch(ctx context.Context, conn *model.Connection, soql string, recordLimit int) (*model.ResultSet, error) {
	if recordLimit < 0 {
		return nil, fmt.Errorf("record limit must be >= 0, got %d", recordLimit)
	}
	unlimited := recordLimit == 0

	f.logger.Info("query execution",
		zap.Int("record_limit", recordLimit),
		zap.Bool("unlimited", unlimited))

	page, err := f.client.Query(ctx, conn, soql)
	if err != nil {
		return nil, err
	}

	records := make([]model.Record, 0, len(page.Records))
	records = append(records, page.Records...)
	columns := page.Columns
	total := page.TotalSize
	iterations := 0
	stopReason := "upstream done"

	for !page.Done && page.NextRecordsURL != "" {
		if !unlimited && len(records) >= recordLimit {
			stopReason = "record limit reached"
			break
		}
		if iterations >= f.maxIterations {
			stopReason = "safety limit reached"
			f.logger.Warn("fetch iteration cap reached, stopping",
				zap.Int("iterations", iterations),
				zap.Int("fetched", len(records)))
			break
		}

		iterations++
		f.logger.Debug("fetching more records",
			zap.Int("iteration", iterations),
			zap.Int("fetched", len(records)))

		page, err = f.client.QueryMore(ctx, conn, page.NextRecordsURL)
		if err != nil {
			return nil, err
		}
		records = append(records, page.Records...)
		total = page.TotalSize
		if len(columns) == 0 {
			columns = page.Columns
		}
	}

	if !unlimited && len(records) > recordLimit {
		records = records[:recordLimit]
		stopReason = "record limit reached"
	}
	if len(columns) == 0 {
		columns = Columns(records)
	}

	rs := &model.ResultSet{
		Records:        records,
		Columns:        displayColumns(columns),
		TotalAvailable: total,
		FetchedCount:   len(records),
		RecordLimit:    recordLimit,
		Unlimited:      unlimited,
		Iterations:     iterations,
	}
	rs.Done = rs.FetchedCount >= rs.TotalAvailable || (!unlimited && rs.FetchedCount >= recordLimit)

	f.logger.Info("query completed",
		zap.String("stop_reason", stopReason),
		zap.Int("fetched", rs.FetchedCount),
		zap.Int("total_available", rs.TotalAvailable),
		zap.Int("iterations", iterations),
		zap.Bool("done", rs.Done))
	return rs, nil
}
