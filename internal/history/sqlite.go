package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"regexp"

	_ "github.com/mattn/go-sqlite3"

	"github.com/crimson-sun/advisor/internal/model"
)

// DefaultTable is read when SourceConfig.Table is empty.
const DefaultTable = "problems"

// ErrInvalidTable is returned for table names that are not plain identifiers.
var ErrInvalidTable = errors.New("invalid table name")

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func init() {
	Register("sqlite", func() Source {
		return &SQLiteSource{}
	})
}

// SQLiteSource reads every row of one table. Columns come from the result set.
type SQLiteSource struct{}

// Load implements Source. The database is opened read-only.
func (s *SQLiteSource) Load(ctx context.Context, cfg SourceConfig) (*model.Dataset, error) {
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("sqlite: %w: %q", ErrInvalidTable, table)
	}
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+cfg.Path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT * FROM "`+table+`"`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sqlite: columns: %w", err)
	}

	vals := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range vals {
		dest[i] = &vals[i]
	}

	var out []map[string]string
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}
		fields := make(map[string]string, len(columns))
		for i, col := range columns {
			if vals[i].Valid {
				fields[col] = vals[i].String
			}
		}
		out = append(out, fields)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows: %w", err)
	}
	return build(columns, out), nil
}
