package testdata

import (
	"testing"

	"github.com/crimson-sun/advisor/internal/model"
)

func TestLoadProblems(t *testing.T) {
	entries, err := LoadProblems()
	if err != nil {
		t.Fatalf("LoadProblems() error: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("corpus is empty")
	}

	// Every entry must carry a title, a description and a language.
	for i, e := range entries {
		if _, ok := e.Record.Lookup(model.FieldTitle); !ok {
			t.Errorf("entry[%d] has no title", i)
		}
		if _, ok := e.Record.Lookup(model.FieldDescription); !ok {
			t.Errorf("entry[%d] has no description", i)
		}
		if e.Language == "" {
			t.Errorf("entry[%d] has no language", i)
		}
	}

	if id := entries[2].Record.ProblemID; id == nil || *id != 42 {
		t.Errorf("entry[2] problem_id = %v, want 42", id)
	}
}

func TestLoadHistory(t *testing.T) {
	ds, err := LoadHistory()
	if err != nil {
		t.Fatalf("LoadHistory() error: %v", err)
	}
	if ds.Len() != 4 {
		t.Fatalf("expected 4 historical rows, got %d", ds.Len())
	}
	for _, col := range []string{model.ColumnCluster, model.ColumnTopic, model.FieldSolutionDescription} {
		if !ds.HasColumn(col) {
			t.Errorf("history is missing column %q", col)
		}
	}

	clusters := map[int]int{}
	for _, r := range ds.Records {
		if r.Cluster == nil {
			t.Fatalf("row %v has no cluster", r.ProblemID)
		}
		clusters[*r.Cluster]++
	}
	if clusters[0] != 2 || clusters[1] != 2 {
		t.Errorf("cluster sizes = %v, want 2 and 2", clusters)
	}
}
