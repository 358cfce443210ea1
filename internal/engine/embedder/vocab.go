package embedder

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// vocab is a WordPiece vocabulary. A token's id is its zero-based line
// number in vocab.txt.
type vocab struct {
	ids map[string]int64

	pad, unk, cls, sep int64
}

func loadVocab(path string) (*vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: %w", err)
	}
	defer f.Close()

	v, err := readVocab(f)
	if err != nil {
		return nil, fmt.Errorf("vocab: %s: %w", path, err)
	}
	return v, nil
}

func readVocab(r io.Reader) (*vocab, error) {
	ids := make(map[string]int64, 1<<15)
	sc := bufio.NewScanner(r)
	var n int64
	for sc.Scan() {
		tok := strings.TrimRight(sc.Text(), "\r")
		if n == 0 {
			tok = strings.TrimPrefix(tok, "\ufeff")
		}
		// A duplicate line keeps its first id.
		if _, dup := ids[tok]; !dup {
			ids[tok] = n
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("empty vocabulary")
	}

	v := &vocab{ids: ids}
	for tok, dst := range map[string]*int64{
		"[PAD]": &v.pad,
		"[UNK]": &v.unk,
		"[CLS]": &v.cls,
		"[SEP]": &v.sep,
	} {
		id, ok := ids[tok]
		if !ok {
			return nil, fmt.Errorf("missing special token %s", tok)
		}
		*dst = id
	}
	return v, nil
}

func (v *vocab) id(tok string) (int64, bool) {
	id, ok := v.ids[tok]
	return id, ok
}

func (v *vocab) size() int { return len(v.ids) }
