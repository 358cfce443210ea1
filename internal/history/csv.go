package history

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/crimson-sun/advisor/internal/model"
)

func init() {
	Register("csv", func() Source {
		return &CSVSource{}
	})
}

// CSVSource reads a header-first CSV export of the problem table.
type CSVSource struct{}

// Load implements Source.
func (s *CSVSource) Load(ctx context.Context, cfg SourceConfig) (*model.Dataset, error) {
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	defer f.Close()
	return ReadCSV(ctx, f)
}

// ReadCSV parses CSV data whose first row names the columns. Short rows leave
// trailing columns missing.
func ReadCSV(ctx context.Context, r io.Reader) (*model.Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("csv: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("csv: header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var rows []map[string]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		if len(rows)%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		fields := make(map[string]string, len(columns))
		for i, col := range columns {
			if i < len(rec) {
				fields[col] = rec[i]
			}
		}
		rows = append(rows, fields)
	}
	return build(columns, rows), nil
}
