package embedder

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	maxSeqLen = 128
	// Words longer than this map straight to [UNK].
	maxWordRunes = 100
)

// tokenized is a padded batch ready for ONNX inference. Slices are flat
// [batchSize * seqLen].
type tokenized struct {
	inputIDs      []int64
	attentionMask []int64
	tokenTypeIDs  []int64
	batchSize     int64
	seqLen        int64
}

// tokenizer is a BERT WordPiece tokenizer. Multilingual cased vocabularies
// keep case and accents; uncased ones set lowercase.
type tokenizer struct {
	vocab     *vocab
	lowercase bool
	maxLen    int
}

func newTokenizer(vocabPath string, lowercase bool) (*tokenizer, error) {
	v, err := loadVocab(vocabPath)
	if err != nil {
		return nil, err
	}
	return &tokenizer{vocab: v, lowercase: lowercase, maxLen: maxSeqLen}, nil
}

// encode returns [CLS] ids... [SEP] for one text, unpadded and truncated to
// maxLen.
func (t *tokenizer) encode(text string) []int64 {
	ids := make([]int64, 0, 16)
	ids = append(ids, t.vocab.cls)
	limit := t.maxLen - 1
	for _, word := range t.words(text) {
		for _, piece := range t.pieces(word) {
			if len(ids) == limit {
				return append(ids, t.vocab.sep)
			}
			ids = append(ids, piece)
		}
	}
	return append(ids, t.vocab.sep)
}

// batch encodes texts and pads them to the longest sequence.
func (t *tokenizer) batch(texts []string) tokenized {
	if len(texts) == 0 {
		return tokenized{}
	}
	seqs := make([][]int64, len(texts))
	longest := 0
	for i, text := range texts {
		seqs[i] = t.encode(text)
		longest = max(longest, len(seqs[i]))
	}

	n, width := int64(len(texts)), int64(longest)
	out := tokenized{
		inputIDs:      make([]int64, n*width),
		attentionMask: make([]int64, n*width),
		tokenTypeIDs:  make([]int64, n*width),
		batchSize:     n,
		seqLen:        width,
	}
	for i, seq := range seqs {
		row := int64(i) * width
		for j, id := range seq {
			out.inputIDs[row+int64(j)] = id
			out.attentionMask[row+int64(j)] = 1
		}
		for j := int64(len(seq)); j < width; j++ {
			out.inputIDs[row+j] = t.vocab.pad
		}
	}
	return out
}

// words is BERT's basic tokenizer: drop control characters, isolate CJK
// ideographs and punctuation, split on whitespace, and for uncased
// vocabularies lowercase and strip accents.
func (t *tokenizer) words(text string) []string {
	if t.lowercase {
		text = stripAccents(strings.ToLower(text))
	}
	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		switch {
		case r == 0 || r == unicode.ReplacementChar || isControl(r):
		case isWhitespace(r):
			flush()
		case isPunctuation(r) || isCJK(r):
			flush()
			out = append(out, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

// pieces splits one word into WordPiece ids by greedy longest match.
func (t *tokenizer) pieces(word string) []int64 {
	runes := []rune(word)
	if len(runes) > maxWordRunes {
		return []int64{t.vocab.unk}
	}
	var ids []int64
	for start := 0; start < len(runes); {
		end := len(runes)
		var id int64
		ok := false
		for ; end > start; end-- {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if id, ok = t.vocab.id(sub); ok {
				break
			}
		}
		if !ok {
			return []int64{t.vocab.unk}
		}
		ids = append(ids, id)
		start = end
	}
	return ids
}

func stripAccents(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range norm.NFD.String(text) {
		if !unicode.Is(unicode.Mn, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.IsControl(r) || unicode.In(r, unicode.Cf)
}

// isPunctuation treats all non-alphanumeric ASCII as punctuation, as BERT
// does, plus the Unicode P categories (which cover Arabic comma and
// question mark).
func isPunctuation(r rune) bool {
	if r < 128 {
		return r > ' ' && r != 127 && !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}
	return unicode.IsPunct(r)
}

var cjk = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x3400, Hi: 0x4DBF, Stride: 1},
		{Lo: 0x4E00, Hi: 0x9FFF, Stride: 1},
		{Lo: 0xF900, Hi: 0xFAFF, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x20000, Hi: 0x2A6DF, Stride: 1},
		{Lo: 0x2A700, Hi: 0x2CEAF, Stride: 1},
		{Lo: 0x2F800, Hi: 0x2FA1F, Stride: 1},
	},
}

func isCJK(r rune) bool { return unicode.Is(cjk, r) }
