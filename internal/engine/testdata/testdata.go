// Package testdata embeds a small corpus of problem records and a matching
// historical dataset for end-to-end tests.
package testdata

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/crimson-sun/advisor/internal/model"
)

//go:embed problems.json
var problemsJSON []byte

//go:embed history.json
var historyJSON []byte

// ProblemEntry is a problem record with the language its text is written in.
type ProblemEntry struct {
	Record      model.ProblemRecord `json:"record"`
	Language    string              `json:"language"`
	Description string              `json:"description"`
}

// LoadProblems parses the embedded problems.json and returns all entries.
func LoadProblems() ([]ProblemEntry, error) {
	var entries []ProblemEntry
	if err := json.Unmarshal(problemsJSON, &entries); err != nil {
		return nil, fmt.Errorf("parse problems.json: %w", err)
	}
	return entries, nil
}

// LoadHistory parses the embedded history.json into a dataset.
func LoadHistory() (*model.Dataset, error) {
	var raw struct {
		Columns []string            `json:"columns"`
		Rows    []map[string]string `json:"rows"`
	}
	if err := json.Unmarshal(historyJSON, &raw); err != nil {
		return nil, fmt.Errorf("parse history.json: %w", err)
	}
	records := make([]model.HistoricalRecord, len(raw.Rows))
	for i, row := range raw.Rows {
		records[i] = model.NewHistoricalRecord(row)
	}
	return model.NewDataset(raw.Columns, records), nil
}
