package infra

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type sqlTraceKey struct{}

// QueryTracer logs every statement the pool runs with its duration and
// outcome. Statement text stays out of the logs; the command tag is
// enough to correlate.
type QueryTracer struct {
	Logger zerolog.Logger
}

func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, _ pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, sqlTraceKey{}, time.Now())
}

func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	var elapsed time.Duration
	if start, ok := ctx.Value(sqlTraceKey{}).(time.Time); ok {
		elapsed = time.Since(start)
	}
	if data.Err != nil {
		t.Logger.Error().Err(data.Err).Dur("elapsed", elapsed).Msg("sql error")
		return
	}
	t.Logger.Debug().Str("command", data.CommandTag.String()).Dur("elapsed", elapsed).Msg("sql ok")
}

var _ pgx.QueryTracer = (*QueryTracer)(nil)
