package datasources

import (
	"context"
	"fmt"
	"log"
	"time"
)

// queryStartedAtKey is the sqlhooks context key SQLLog stashes the query
// start time under, so After can compute elapsed duration.
type queryStartedAtKey struct{}

// SQLLog is a github.com/qustavo/sqlhooks/v2 Hooks implementation that logs
// every query with its bind arguments and elapsed duration, mirroring
// gokoala's geopackage.go, which wraps its sqlite3 driver with
// "sqlhooks.Wrap(driver, &datasources.SQLLog{})" but leaves SQLLog itself
// out of the retrieved file set.
type SQLLog struct{}

func (SQLLog) Before(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	return context.WithValue(ctx, queryStartedAtKey{}, time.Now()), nil
}

func (SQLLog) After(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	started, _ := ctx.Value(queryStartedAtKey{}).(time.Time)
	var elapsed time.Duration
	if !started.IsZero() {
		elapsed = time.Since(started)
	}
	log.Printf("query took %s, args=%v: %s", elapsed, stringifyArgs(args), query)
	return ctx, nil
}

func (SQLLog) OnError(ctx context.Context, err error, query string, args ...interface{}) error {
	log.Printf("query failed: %v: %s", err, query)
	return err
}

func stringifyArgs(args []interface{}) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = fmt.Sprint(a)
	}
	return out
}
