// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

// Package athena is the default cost data source, executing validated SQL
// against the CUR table through Amazon Athena.
//
// A fetch is strictly sequential: compose SQL (template or pre-generated),
// re-run the account scope guard, submit, poll at a fixed cadence, page
// the result set, coerce cells to scalars, and drop meta-service rows.
// Outer context cancellation aborts the poll loop between attempts.
package athena

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsathena "github.com/aws/aws-sdk-go-v2/service/athena"
	athenatypes "github.com/aws/aws-sdk-go-v2/service/athena/types"

	"github.com/costlens/costlens/internal/logging"
	"github.com/costlens/costlens/internal/metrics"
	"github.com/costlens/costlens/internal/models"
	"github.com/costlens/costlens/internal/scope"
	"github.com/costlens/costlens/internal/sqlguard"
)

// API is the subset of the Athena SDK client the driver needs. Declared
// here so tests can substitute a fake without touching the SDK.
type API interface {
	StartQueryExecution(ctx context.Context, params *awsathena.StartQueryExecutionInput, optFns ...func(*awsathena.Options)) (*awsathena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, params *awsathena.GetQueryExecutionInput, optFns ...func(*awsathena.Options)) (*awsathena.GetQueryExecutionOutput, error)
	GetQueryResults(ctx context.Context, params *awsathena.GetQueryResultsInput, optFns ...func(*awsathena.Options)) (*awsathena.GetQueryResultsOutput, error)
}

// Config holds the execution parameters for one driver instance.
type Config struct {
	Database        string
	Table           string
	OutputLocation  string
	PollInterval    time.Duration
	MaxPollAttempts int
	MaxPageRows     int32
}

// metaServices are synthetic CUR line items that would pollute service
// rankings; rows naming them are dropped after coercion.
var metaServices = map[string]bool{
	"aws cost explorer": true,
	"cost explorer":     true,
	"support":           true,
}

// ErrTimeout is returned when a query does not complete within the
// polling budget.
var ErrTimeout = errors.New("query timeout")

// Driver implements datasource.DataSource on Athena.
type Driver struct {
	api   API
	cfg   Config
	guard *sqlguard.Validator
}

// New constructs a Driver. Zero-valued poll settings get the standard
// 1s x 30 budget.
func New(api API, cfg Config, guard *sqlguard.Validator) *Driver {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.MaxPollAttempts == 0 {
		cfg.MaxPollAttempts = 30
	}
	if cfg.MaxPageRows == 0 {
		cfg.MaxPageRows = 1000
	}
	return &Driver{api: api, cfg: cfg, guard: guard}
}

// Name implements datasource.DataSource.
func (d *Driver) Name() models.DataSourceName { return models.DataSourceAthena }

// Fetch executes the spec. Query-level failures (validation, denial,
// Athena errors, timeout) are reported inside QueryResult.Error so the
// orchestrator can attempt fallbacks; only a nil spec is a Go error.
func (d *Driver) Fetch(ctx context.Context, spec *models.QuerySpec) (*models.QueryResult, error) {
	if spec == nil {
		return nil, errors.New("nil query spec")
	}
	start := time.Now()
	result := &models.QueryResult{
		Metadata: models.ResultMetadata{DataSource: models.DataSourceAthena},
	}

	sql := spec.SQL
	if sql == "" {
		var err error
		sql, err = d.composeSQL(spec)
		if err != nil {
			result.Error = err.Error()
			return result, nil
		}
	}

	// Submission-time guard. SQL generated upstream already passed both
	// checks, but templates, drill-down, and rescue paths build SQL
	// outside the generator.
	if err := d.guard.Validate(sql); err != nil {
		result.Error = err.Error()
		return result, nil
	}
	if len(spec.Accounts) > 0 {
		sql, _ = scope.Enforce(sql, spec.Accounts)
		if ok, err := scope.ValidateScope(sql, spec.Accounts); !ok {
			result.Error = err.Error()
			return result, nil
		}
	}
	result.Metadata.SQLQuery = sql

	rows, queryID, err := d.execute(ctx, sql)
	result.Metadata.QueryID = queryID
	result.Metadata.ExecutionTimeMS = time.Since(start).Milliseconds()
	if err != nil {
		metrics.AthenaQueryErrors.WithLabelValues(classifyError(err)).Inc()
		metrics.AthenaQueryDuration.WithLabelValues("FAILED").Observe(time.Since(start).Seconds())
		result.Error = err.Error()
		return result, nil
	}

	result.Data = filterMetaServices(rows)
	metrics.AthenaQueryDuration.WithLabelValues("SUCCEEDED").Observe(time.Since(start).Seconds())
	metrics.AthenaRowsFetched.Observe(float64(len(result.Data)))

	logging.Ctx(ctx).Debug().
		Str("query_id", queryID).
		Int("rows", len(result.Data)).
		Int64("elapsed_ms", result.Metadata.ExecutionTimeMS).
		Msg("Athena fetch complete")
	return result, nil
}

// DistinctProductCodes loads the product-code vocabulary for the service
// resolver. Looks back 90 days so retired services age out.
func (d *Driver) DistinctProductCodes(ctx context.Context) ([]string, error) {
	sql := fmt.Sprintf(
		`SELECT DISTINCT line_item_product_code FROM %s WHERE line_item_usage_start_date >= CURRENT_DATE - INTERVAL '90' DAY AND line_item_product_code <> ''`,
		d.cfg.Table)
	rows, _, err := d.execute(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("loading product codes: %w", err)
	}
	codes := make([]string, 0, len(rows))
	for _, row := range rows {
		if code := models.RowString(row, "line_item_product_code"); code != "" {
			codes = append(codes, code)
		}
	}
	return codes, nil
}

// execute runs one statement end to end: submit, poll, page, coerce.
func (d *Driver) execute(ctx context.Context, sql string) ([]models.Row, string, error) {
	startOut, err := d.api.StartQueryExecution(ctx, &awsathena.StartQueryExecutionInput{
		QueryString: aws.String(sql),
		QueryExecutionContext: &athenatypes.QueryExecutionContext{
			Database: aws.String(d.cfg.Database),
		},
		ResultConfiguration: &athenatypes.ResultConfiguration{
			OutputLocation: aws.String(d.cfg.OutputLocation),
		},
	})
	if err != nil {
		return nil, "", fmt.Errorf("starting query: %w", err)
	}
	queryID := aws.ToString(startOut.QueryExecutionId)

	if err := d.poll(ctx, queryID); err != nil {
		return nil, queryID, err
	}

	rows, err := d.page(ctx, queryID)
	return rows, queryID, err
}

// poll waits for completion at the configured cadence. Returns ErrTimeout
// when the attempt budget is exhausted.
func (d *Driver) poll(ctx context.Context, queryID string) error {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < d.cfg.MaxPollAttempts; attempt++ {
		out, err := d.api.GetQueryExecution(ctx, &awsathena.GetQueryExecutionInput{
			QueryExecutionId: aws.String(queryID),
		})
		if err != nil {
			return fmt.Errorf("polling query %s: %w", queryID, err)
		}

		status := out.QueryExecution.Status
		switch status.State {
		case athenatypes.QueryExecutionStateSucceeded:
			return nil
		case athenatypes.QueryExecutionStateFailed, athenatypes.QueryExecutionStateCancelled:
			reason := aws.ToString(status.StateChangeReason)
			if reason == "" {
				reason = string(status.State)
			}
			return fmt.Errorf("query %s: %s", strings.ToLower(string(status.State)), reason)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return fmt.Errorf("%w after %d attempts", ErrTimeout, d.cfg.MaxPollAttempts)
}

// page follows result pagination. The first row of the first page is the
// column header; later pages carry data only.
func (d *Driver) page(ctx context.Context, queryID string) ([]models.Row, error) {
	var (
		headers []string
		rows    []models.Row
		token   *string
		first   = true
	)
	for {
		out, err := d.api.GetQueryResults(ctx, &awsathena.GetQueryResultsInput{
			QueryExecutionId: aws.String(queryID),
			NextToken:        token,
			MaxResults:       aws.Int32(d.cfg.MaxPageRows),
		})
		if err != nil {
			return nil, fmt.Errorf("fetching results for %s: %w", queryID, err)
		}

		data := out.ResultSet.Rows
		if first && len(data) > 0 {
			headers = make([]string, len(data[0].Data))
			for i, cell := range data[0].Data {
				headers[i] = aws.ToString(cell.VarCharValue)
			}
			data = data[1:]
			first = false
		}

		for _, raw := range data {
			row := make(models.Row, len(headers))
			for i, cell := range raw.Data {
				if i >= len(headers) {
					break
				}
				if cell.VarCharValue == nil {
					row[headers[i]] = nil
					continue
				}
				row[headers[i]] = coerceCell(*cell.VarCharValue)
			}
			rows = append(rows, row)
		}

		token = out.NextToken
		if token == nil {
			return rows, nil
		}
	}
}

// filterMetaServices drops rows whose service column names a synthetic
// billing construct rather than a real service.
func filterMetaServices(rows []models.Row) []models.Row {
	out := rows[:0]
	for _, row := range rows {
		if svc, ok := row["service"].(string); ok && metaServices[strings.ToLower(svc)] {
			continue
		}
		out = append(out, row)
	}
	return out
}

// classifyError buckets a fetch failure for metrics and clarification
// selection.
func classifyError(err error) string {
	if errors.Is(err, ErrTimeout) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "cancelled"
	}
	return ClassifyMessage(err.Error())
}

// ClassifyMessage buckets a failure message carried in QueryResult.Error.
// The pipeline uses the bucket to pick user-facing clarifications.
func ClassifyMessage(message string) string {
	msg := strings.ToUpper(message)
	switch {
	case strings.Contains(msg, "TIMEOUT"):
		return "timeout"
	case strings.Contains(msg, "COLUMN_NOT_FOUND") || strings.Contains(msg, "CANNOT BE RESOLVED"):
		return "column_not_found"
	case strings.Contains(msg, "SYNTAX_ERROR") || strings.Contains(msg, "SYNTAX ERROR"):
		return "syntax_error"
	case strings.Contains(msg, "ACCESS DENIED") || strings.Contains(msg, "PERMISSION"):
		return "permission"
	default:
		return "generic"
	}
}
