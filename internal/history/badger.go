package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/crimson-sun/advisor/internal/model"
)

const (
	recordPrefix = "record:"
	columnsKey   = "meta:columns"
)

// ErrEmptyStore is returned when a store holds no imported dataset.
var ErrEmptyStore = errors.New("no dataset imported")

func init() {
	Register("badger", func() Source {
		return &BadgerSource{}
	})
}

// BadgerSource reads a dataset previously written by Store.Put.
type BadgerSource struct{}

// Load implements Source.
func (s *BadgerSource) Load(ctx context.Context, cfg SourceConfig) (*model.Dataset, error) {
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, fmt.Errorf("badger: %w", err)
	}
	store, err := OpenStore(cfg.Path)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Dataset(ctx)
}

// Store keeps a dataset in badger. Each row is a JSON object under
// record:<problem_id>; the header is a JSON array under meta:columns.
type Store struct {
	db *badger.DB
}

// OpenStore opens (or creates) a badger directory.
func OpenStore(path string) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, fmt.Errorf("badger: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an already opened database.
func NewStore(db *badger.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put replaces the stored dataset with ds and returns the number of rows written.
func (s *Store) Put(ctx context.Context, ds *model.Dataset) (int, error) {
	if err := s.db.DropPrefix([]byte(recordPrefix)); err != nil {
		return 0, fmt.Errorf("badger: clear: %w", err)
	}

	header, err := json.Marshal(ds.Columns())
	if err != nil {
		return 0, fmt.Errorf("badger: columns: %w", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	if err := wb.Set([]byte(columnsKey), header); err != nil {
		return 0, fmt.Errorf("badger: columns: %w", err)
	}
	n := 0
	for i, rec := range ds.Records {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		value, err := json.Marshal(rec.Fields)
		if err != nil {
			return n, fmt.Errorf("badger: record %d: %w", i, err)
		}
		if err := wb.Set(recordKey(rec, i), value); err != nil {
			return n, fmt.Errorf("badger: record %d: %w", i, err)
		}
		n++
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("badger: flush: %w", err)
	}
	return n, nil
}

// recordKey zero-pads ids so iteration follows numeric order. Rows without an
// id sort after all numbered rows, in their original order.
func recordKey(rec model.HistoricalRecord, index int) []byte {
	if rec.ProblemID != nil && *rec.ProblemID >= 0 {
		return fmt.Appendf(nil, "%s%019d", recordPrefix, *rec.ProblemID)
	}
	return fmt.Appendf(nil, "%s~%019d", recordPrefix, index)
}

// Dataset reads the stored dataset back.
func (s *Store) Dataset(ctx context.Context) (*model.Dataset, error) {
	var (
		columns []string
		records []model.HistoricalRecord
	)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(columnsKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrEmptyStore
		}
		if err != nil {
			return err
		}
		if err := item.Value(func(v []byte) error {
			return json.Unmarshal(v, &columns)
		}); err != nil {
			return fmt.Errorf("columns: %w", err)
		}

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(recordPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var fields map[string]string
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &fields)
			}); err != nil {
				return fmt.Errorf("record %s: %w", it.Item().Key(), err)
			}
			records = append(records, model.NewHistoricalRecord(fields))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger: %w", err)
	}
	return model.NewDataset(columns, records), nil
}

// Import loads a dataset from the named source and writes it into the badger
// directory at dest.
func Import(ctx context.Context, name string, cfg SourceConfig, dest string) (int, error) {
	ds, err := Load(ctx, name, cfg)
	if err != nil {
		return 0, err
	}
	store, err := OpenStore(dest)
	if err != nil {
		return 0, err
	}
	n, err := store.Put(ctx, ds)
	if cerr := store.Close(); err == nil && cerr != nil {
		err = cerr
	}
	return n, err
}
