package database

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/central-university-dev/linktracker/internal/common/metrics"
	"github.com/jackc/pgx/v5"
)

type queryStartKey struct{}

type queryStart struct {
	sql     string
	startAt time.Time
}

// QueryTracer records every statement in the database metrics and logs the
// slow ones.
type QueryTracer struct {
	logger        *slog.Logger
	slowThreshold time.Duration
}

func NewQueryTracer(logger *slog.Logger, slowThreshold time.Duration) *QueryTracer {
	return &QueryTracer{
		logger:        logger,
		slowThreshold: slowThreshold,
	}
}

func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{sql: data.SQL, startAt: time.Now()})
}

func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}

	elapsed := time.Since(start.startAt)
	operation := queryOperation(start.sql)

	status := metrics.StatusSuccess
	if data.Err != nil {
		status = metrics.StatusError
	}

	metrics.RecordDatabaseQuery(operation, status, elapsed)

	if t.slowThreshold > 0 && elapsed >= t.slowThreshold {
		t.logger.Warn("Медленный SQL запрос",
			"operation", operation,
			"elapsed", elapsed,
			"sql", compactSQL(start.sql),
		)
	}
}

// queryOperation returns the leading keyword of a statement in lower case.
func queryOperation(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}

	return strings.ToLower(fields[0])
}

func compactSQL(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}
