package model

import (
	"math"
	"strconv"
	"strings"
)

// Historical dataset columns beyond the problem record fields.
const (
	ColumnCluster        = "cluster_kmeans"
	ColumnTopic          = "bertopic_topic"
	ColumnProcessedText  = "processed_text"
	ColumnDateIdentified = "date_identified"
	ColumnDateClosed     = "date_closed"
	ColumnResolutionDays = "resolution_time_days_calc"

	ColumnCostNumeric   = "estimated_cost_numeric"
	ColumnBudgetNumeric = "overall_budget_numeric"
	ColumnTimeDays      = "estimated_time_days"
	ColumnTextLength    = "processed_text_length"
)

// HistoricalRecord is one row of the historical dataset. Values are kept as
// text; Cluster, Topic and ProblemID are parsed once at construction.
type HistoricalRecord struct {
	ProblemID *int64
	Cluster   *int
	Topic     *int
	Fields    map[string]string
}

// NewHistoricalRecord builds a record from column values. Empty values and
// unparseable labels are treated as missing.
func NewHistoricalRecord(fields map[string]string) HistoricalRecord {
	rec := HistoricalRecord{Fields: fields}
	if v, ok := rec.Get(FieldProblemID); ok {
		if id, err := parseID(v); err == nil {
			rec.ProblemID = &id
		}
	}
	if v, ok := rec.Get(ColumnCluster); ok {
		if id, err := parseID(v); err == nil {
			c := int(id)
			rec.Cluster = &c
		}
	}
	if v, ok := rec.Get(ColumnTopic); ok {
		if id, err := parseID(v); err == nil {
			t := int(id)
			rec.Topic = &t
		}
	}
	return rec
}

// Get returns the trimmed value of a column. Empty and "nan"/"null" values
// count as absent.
func (r HistoricalRecord) Get(column string) (string, bool) {
	v, ok := r.Fields[column]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "", "nan", "null", "none":
		return "", false
	}
	return v, true
}

// Number returns the column parsed as a float. NaN counts as absent.
func (r HistoricalRecord) Number(column string) (float64, bool) {
	v, ok := r.Get(column)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Dataset is a read-only table of historical records with a known column set.
// It is safe for concurrent readers.
type Dataset struct {
	columns []string
	index   map[string]struct{}
	Records []HistoricalRecord
}

// NewDataset creates a dataset. columns is the table header; records may carry
// a subset of it.
func NewDataset(columns []string, records []HistoricalRecord) *Dataset {
	idx := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		idx[c] = struct{}{}
	}
	return &Dataset{columns: columns, index: idx, Records: records}
}

// HasColumn reports whether the table header includes name.
func (d *Dataset) HasColumn(name string) bool {
	if d == nil {
		return false
	}
	_, ok := d.index[name]
	return ok
}

// Columns returns the header in its original order.
func (d *Dataset) Columns() []string {
	if d == nil {
		return nil
	}
	return d.columns
}

// Len returns the number of records; zero for a nil dataset.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}
