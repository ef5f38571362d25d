package database

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/fairyhunter13/love-coupon-system/pkg/database"

// maxStatementLen caps the SQL recorded on a span.
const maxStatementLen = 512

// QueryTracer opens one OpenTelemetry client span per query, nested under the
// caller's span. Query arguments are never recorded.
type QueryTracer struct{}

var _ pgx.QueryTracer = QueryTracer{}

// TraceQueryStart implements pgx.QueryTracer.
func (QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	ctx, _ = otel.Tracer(tracerName).Start(ctx, spanName(data.SQL),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.statement", truncate(data.SQL, maxStatementLen)),
		),
	)
	return ctx
}

// TraceQueryEnd implements pgx.QueryTracer.
func (QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span := trace.SpanFromContext(ctx)
	if data.Err != nil {
		span.RecordError(data.Err)
		span.SetStatus(codes.Error, data.Err.Error())
	} else {
		span.SetAttributes(attribute.Int64("db.rows_affected", data.CommandTag.RowsAffected()))
	}
	span.End()
}

// spanName is the statement's leading keyword, e.g. "db SELECT".
func spanName(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "db"
	}
	return "db " + strings.ToUpper(fields[0])
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n]
}
