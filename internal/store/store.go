// Package store keeps a dataset in SQLite and computes cuboids with SQL
// GROUP BY queries over the stored JSON records.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ObservedObserver/fast-pivot/internal/cube"
	"github.com/ObservedObserver/fast-pivot/internal/cuboid"
	"github.com/ObservedObserver/fast-pivot/internal/logger"
	"github.com/ObservedObserver/fast-pivot/internal/pivot"
	"github.com/ohler55/ojg/oj"
	_ "modernc.org/sqlite"
)

// ErrUnsupportedAggregator is returned for measures whose aggregator has no
// SQL rendering (custom aggregators).
var ErrUnsupportedAggregator = errors.New("aggregator not supported by sql backend")

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id INTEGER PRIMARY KEY,
	record JSON NOT NULL
);
`

// Store is a SQLite-backed dataset.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path. ":memory:" keeps the dataset
// in memory for the lifetime of the Store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// Load appends ds in one transaction, preserving record order.
func (s *Store) Load(ctx context.Context, ds pivot.DataSource) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (record) VALUES (?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, rec := range ds {
		if _, err := stmt.ExecContext(ctx, oj.JSON(map[string]any(rec))); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	logger.Get(ctx).Debug().Int("records", len(ds)).Msg("dataset loaded")
	return nil
}

// Len returns the number of stored records.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Records returns every stored record in insertion order.
func (s *Store) Records(ctx context.Context) (pivot.DataSource, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ds pivot.DataSource
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec, err := decode(raw)
		if err != nil {
			return nil, err
		}
		ds = append(ds, rec)
	}
	return ds, rows.Err()
}

func decode(raw string) (pivot.Record, error) {
	v, err := oj.ParseString(raw)
	if err != nil {
		return nil, fmt.Errorf("parse record json: %w", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("record is %T, not an object", v)
	}
	return pivot.Record(m), nil
}

// Compute returns a ComputeFunc answering cuboid requests with SQL. Raw
// cuboids read every record; aggregated cuboids are one GROUP BY query.
// Requested measure ids resolve against measures; an id with no declaration
// is summed.
func (s *Store) Compute(measures []pivot.Measure) cube.ComputeFunc {
	byID := make(map[string]pivot.Measure, len(measures))
	for _, m := range measures {
		byID[m.ID] = m
	}
	return func(ctx context.Context, key []string, ids []string) (*cuboid.Cuboid, error) {
		if len(ids) == 0 {
			ds, err := s.Records(ctx)
			if err != nil {
				return nil, err
			}
			return cuboid.NewRaw(key, ds), nil
		}
		ms := make([]pivot.Measure, len(ids))
		for i, id := range ids {
			m, ok := byID[id]
			if !ok {
				m = pivot.Measure{ID: id}
			}
			ms[i] = m
		}
		rows, err := s.groupBy(ctx, key, ms)
		if err != nil {
			return nil, err
		}
		return cuboid.NewAggregated(key, ids, rows), nil
	}
}

// jsonPath addresses a top-level member of the record object.
func jsonPath(id string) string {
	return `$."` + strings.ReplaceAll(id, `"`, `\"`) + `"`
}

// measureExpr renders the aggregate over the extracted measure column
// m<i>. column reports whether the expression reads that column.
func measureExpr(m pivot.Measure, i int) (expr string, column bool, err error) {
	name := "sum"
	if m.Aggregator != nil {
		name = m.Aggregator.Name()
	}
	if _, custom := m.Aggregator.(pivot.Custom); custom {
		return "", false, fmt.Errorf("%w: %s (%s)", ErrUnsupportedAggregator, m.ID, name)
	}
	switch name {
	case "sum":
		return fmt.Sprintf("TOTAL(m%d)", i), true, nil
	case "count":
		return "COUNT(*)", false, nil
	case "mean":
		return fmt.Sprintf("AVG(m%d)", i), true, nil
	}
	return "", false, fmt.Errorf("%w: %s (%s)", ErrUnsupportedAggregator, m.ID, name)
}

// keyExpr renders the text key of dimension i from its JSON type t<i> and
// value v<i>, matching pivot.Key: booleans print as true/false, integral
// reals print without a fraction, and null or missing members are "".
func keyExpr(i int) string {
	return fmt.Sprintf("CASE t%[1]d"+
		" WHEN 'true' THEN 'true'"+
		" WHEN 'false' THEN 'false'"+
		" WHEN 'integer' THEN CAST(v%[1]d AS TEXT)"+
		" WHEN 'real' THEN CASE WHEN v%[1]d = CAST(v%[1]d AS INTEGER)"+
		" THEN CAST(CAST(v%[1]d AS INTEGER) AS TEXT) ELSE CAST(v%[1]d AS TEXT) END"+
		" ELSE COALESCE(v%[1]d, '') END", i)
}

// buildQuery renders the GROUP BY query for dims and measures. Groups are
// keyed by keyExpr; each result row carries the group's first record, whose
// values are reported for the dimensions, and groups come out in first-seen
// order. Result columns: first id, group size, one per measure, record.
func buildQuery(dims []string, measures []pivot.Measure) (string, []any, error) {
	extract := []string{"id"}
	aggs := []string{"MIN(id) AS first", "COUNT(*) AS n"}
	var groups []string
	var args []any
	for i, d := range dims {
		extract = append(extract, fmt.Sprintf("json_type(record, ?) AS t%d, json_extract(record, ?) AS v%d", i, i))
		args = append(args, jsonPath(d), jsonPath(d))
		groups = append(groups, keyExpr(i))
	}
	for i, m := range measures {
		expr, column, err := measureExpr(m, i)
		if err != nil {
			return "", nil, err
		}
		if column {
			extract = append(extract, fmt.Sprintf("json_extract(record, ?) AS m%d", i))
			args = append(args, jsonPath(m.ID))
		}
		aggs = append(aggs, fmt.Sprintf("%s AS a%d", expr, i))
	}

	var b strings.Builder
	b.WriteString("WITH x AS (SELECT ")
	b.WriteString(strings.Join(extract, ", "))
	b.WriteString(" FROM records) SELECT g.*, r.record FROM (SELECT ")
	b.WriteString(strings.Join(aggs, ", "))
	b.WriteString(" FROM x")
	if len(groups) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(groups, ", "))
	}
	b.WriteString(") AS g LEFT JOIN records AS r ON r.id = g.first ORDER BY g.first")
	return b.String(), args, nil
}

func (s *Store) groupBy(ctx context.Context, dims []string, measures []pivot.Measure) (pivot.DataSource, error) {
	q, args, err := buildQuery(dims, measures)
	if err != nil {
		return nil, err
	}
	logger.Get(ctx).Debug().Str("sql", q).Strs("dims", dims).Msg("group by")

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query group by: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out pivot.DataSource
	for rows.Next() {
		var first sql.NullInt64
		var n int64
		var raw sql.NullString
		vals := make([]any, len(measures))
		dest := []any{&first, &n}
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		dest = append(dest, &raw)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		if n == 0 {
			continue // empty table, no grouping
		}
		rec := make(pivot.Record, len(dims)+len(measures))
		if len(dims) > 0 {
			firstRec, err := decode(raw.String)
			if err != nil {
				return nil, fmt.Errorf("group %d: %w", first.Int64, err)
			}
			for _, d := range dims {
				rec[d] = firstRec[d]
			}
		}
		for i, m := range measures {
			rec[m.ID] = measureValue(vals[i])
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func measureValue(v any) any {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	f, ok := pivot.Number(v)
	if !ok {
		return nil
	}
	return f
}
