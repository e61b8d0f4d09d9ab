// Package query projects a set of submission archives into one in-memory
// SQL table and evaluates ad-hoc queries over it. The database lives and
// dies with the invocation; nothing is ever written to disk.
package query

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/pretor/internal/psf"
	"github.com/okian/pretor/pkg/metrics"
)

// TableName is the single queryable table.
const TableName = "psf"

// fixedColumns are always present, in this order. Extra metadata fields add
// TEXT columns after them.
var fixedColumns = []string{
	"uuid", "filename", "path",
	"semester", "course", "section", "groupid", "assignment",
	"graded", "grade", "revisions",
}

// reservedFields are metadata fields already projected into fixed columns.
var reservedFields = map[string]string{
	psf.FieldSemester:   "semester",
	psf.FieldCourse:     "course",
	psf.FieldSection:    "section",
	psf.FieldGroup:      "groupid",
	psf.FieldAssignment: "assignment",
}

var identPattern = regexp.MustCompile(`[^a-z0-9_]+`)

// sanitizeColumn turns an arbitrary metadata field name into a safe SQL
// identifier.
func sanitizeColumn(name string) string {
	s := identPattern.ReplaceAllString(strings.ToLower(name), "_")
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		s = "_" + s
	}
	return s
}

// Build opens every archive, derives the column set, and loads one row per
// archive into an in-memory sqlite database.
func Build(ctx context.Context, paths []string) (*gorm.DB, error) {
	type projected struct {
		archive *psf.Archive
		meta    psf.Metadata
	}

	rows := make([]projected, 0, len(paths))
	extraSet := make(map[string]string) // column -> original field
	fixed := make(map[string]struct{}, len(fixedColumns))
	for _, c := range fixedColumns {
		fixed[c] = struct{}{}
	}

	for _, path := range paths {
		a, err := psf.Open(path)
		if err != nil {
			return nil, err
		}
		meta := a.Metadata()
		for field := range meta {
			if _, ok := reservedFields[field]; ok {
				continue
			}
			col := sanitizeColumn(field)
			if _, clash := fixed[col]; clash {
				continue
			}
			if prev, ok := extraSet[col]; ok && prev != field {
				continue
			}
			extraSet[col] = field
		}
		rows = append(rows, projected{archive: a, meta: meta})
	}

	extras := make([]string, 0, len(extraSet))
	for col := range extraSet {
		extras = append(extras, col)
	}
	sort.Strings(extras)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open in-memory database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open in-memory database: %w", err)
	}
	// A second pooled connection would see its own empty :memory: database.
	sqlDB.SetMaxOpenConns(1)

	var ddl strings.Builder
	ddl.WriteString("CREATE TABLE " + TableName + " (")
	ddl.WriteString("uuid TEXT, filename TEXT, path TEXT, ")
	ddl.WriteString("semester TEXT, course TEXT, section TEXT, groupid TEXT, assignment TEXT, ")
	ddl.WriteString("graded INTEGER, grade REAL, revisions INTEGER")
	for _, col := range extras {
		ddl.WriteString(", " + col + " TEXT")
	}
	ddl.WriteString(")")
	if err := db.WithContext(ctx).Exec(ddl.String()).Error; err != nil {
		return nil, fmt.Errorf("create table: %w", err)
	}

	columns := append(append([]string{}, fixedColumns...), extras...)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		TableName, strings.Join(columns, ", "), placeholders)

	for _, p := range rows {
		args := projectRow(p.archive, p.meta, extras, extraSet)
		if err := db.WithContext(ctx).Exec(insert, args...).Error; err != nil {
			return nil, fmt.Errorf("load %s: %w", p.archive.Path(), err)
		}
	}
	return db, nil
}

func projectRow(a *psf.Archive, meta psf.Metadata, extras []string, extraSet map[string]string) []interface{} {
	led := a.Ledger()

	var grade interface{}
	graded := 0
	if led.Graded() {
		graded = 1
		sum := 0.0
		for _, v := range led.Scorecard() {
			sum += v
		}
		grade = sum
	}

	args := []interface{}{
		a.ID(),
		baseName(a.Path()),
		a.Path(),
		meta[psf.FieldSemester],
		meta[psf.FieldCourse],
		meta[psf.FieldSection],
		meta[psf.FieldGroup],
		meta[psf.FieldAssignment],
		graded,
		grade,
		led.Len(),
	}
	for _, col := range extras {
		if v, ok := meta[extraSet[col]]; ok {
			args = append(args, v)
		} else {
			args = append(args, nil)
		}
	}
	return args
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Result is one evaluated query: column names plus stringified row values.
type Result struct {
	Columns []string
	Rows    [][]string
}

// Run evaluates one SQL statement against the built database.
func Run(ctx context.Context, db *gorm.DB, q string) (*Result, error) {
	rows, err := db.WithContext(ctx).Raw(q).Rows()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	res := &Result{Columns: cols}
	for rows.Next() {
		raw := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
		out := make([]string, len(cols))
		for i, v := range raw {
			out[i] = stringify(v)
		}
		res.Rows = append(res.Rows, out)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	metrics.RecordQueryRun()
	metrics.RecordQueryRows(len(res.Rows))
	return res, nil
}

// Close releases the in-memory database.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func stringify(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
